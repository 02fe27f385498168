package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/extract"
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
		inmem     = pflag.Bool("inmem", false, "use an in-memory SQLite database with empty reference tables")
		xlsxOut   = pflag.String("xlsx", "", "write a verification workbook to this path")
		overwrite = pflag.Bool("overwrite", false, "replace a stored certificate with the same number")
		food      = pflag.String("food", "", "use this food instead of the sample description")
		skipFood  = pflag.Bool("skip-food-validation", false, "verify even when the food is not in the reference tables")
		rulesFile = pflag.String("rules", "", "rules file overriding the built-in rules")
	)
	pflag.Usage = func() {
		printError("usage: coa-verify [flags] <certificate.pdf|certificate.txt>\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	path := pflag.Arg(0)

	// stdout carries the result
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	if *inmem {
		cfg.UseInMemory()
	}
	if *rulesFile != "" {
		cfg.Pipeline.RulesFile = *rulesFile
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := svc.NewApp(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close(logger)

	doc, err := extract.ReadDocument(path)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	out, err := app.Intake.Submit(ctx, intake.Submission{
		Document:           doc,
		Overwrite:          *overwrite,
		SelectedFood:       *food,
		SkipFoodValidation: *skipFood,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		printError("Error: encode result: %v\n", encErr)
		os.Exit(1)
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if err := out.Err(); err != nil {
		printError("%s: %v\n", out.Status, err)
		os.Exit(3)
	}

	if *xlsxOut != "" {
		b, err := app.Export.VerificationXLSX(out.Result.Certificate, out.Result.Verifications)
		if err != nil {
			logger.Error("failed to build workbook", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, b, 0644); err != nil {
			logger.Error("failed to write output file", "error", err)
			os.Exit(1)
		}
		logger.Info("workbook written", "path", *xlsxOut)
	}
}
