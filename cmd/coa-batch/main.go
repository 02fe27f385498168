package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/export"
	"github.com/joseph-ayodele/coa-verifier/internal/intake"
	svc "github.com/joseph-ayodele/coa-verifier/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem       = pflag.Bool("inmem", false, "use an in-memory SQLite database with empty reference tables")
		dir         = pflag.String("dir", "", "directory to process certificates from (required)")
		out         = pflag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		concurrency = pflag.Int("concurrency", 0, "files processed in parallel (default PIPELINE_CONCURRENCY)")
		overwrite   = pflag.Bool("overwrite", false, "replace stored certificates with the same number")
		skipFood    = pflag.Bool("skip-food-validation", false, "verify even when the food is not in the reference tables")
		exts        = pflag.StringSlice("ext", nil, "only process these extensions (default pdf,txt)")
	)
	pflag.Parse()

	// Validate required flags
	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	// If output file not specified, use parent directory with default filename
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "coa-summary.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *inmem {
		cfg.UseInMemory()
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *concurrency <= 0 {
		*concurrency = cfg.Pipeline.Concurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := svc.NewApp(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close(logger)

	logger.Info("starting batch", "dir", *dir, "concurrency", *concurrency)
	results, stats, err := app.Intake.Batch(ctx, *dir, intake.BatchOptions{
		Concurrency:        *concurrency,
		SkipHidden:         true,
		Overwrite:          *overwrite,
		SkipFoodValidation: *skipFood,
		IncludeExts:        *exts,
	})
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}

	entries := make([]export.BatchEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, export.BatchEntry{
			Path:              r.Path,
			Status:            string(r.Status),
			CertificateNumber: r.CertificateNumber,
			Sample:            r.Sample,
			Rows:              r.Rows,
			Inconsistent:      r.Inconsistent,
			Err:               r.Err,
		})
	}
	xlsxBytes, err := app.Export.SummaryXLSX(entries)
	if err != nil {
		logger.Error("failed to build summary", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"duplicates", stats.Duplicates,
		"needs_food", stats.NeedsFood,
		"failed", stats.Failed,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", stats.Matched)
	fmt.Printf("- Verified: %d\n", stats.Succeeded)
	fmt.Printf("- Duplicates: %d\n", stats.Duplicates)
	fmt.Printf("- Needs food selection: %d\n", stats.NeedsFood)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Output: %s\n", *out)
}
