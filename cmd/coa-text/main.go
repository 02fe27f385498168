package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/extract"
	"github.com/joseph-ayodele/coa-verifier/internal/ocr"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
	svc "github.com/joseph-ayodele/coa-verifier/internal/server"
	"github.com/joseph-ayodele/coa-verifier/internal/validate"
)

type report struct {
	Text        entity.RecoveredText      `json:"text"`
	Validation  entity.ValidationVerdict  `json:"validation"`
	Certificate *entity.CertificateRecord `json:"certificate,omitempty"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	raster := pflag.Bool("raster", false, "OCR pages without a text layer")
	parse := pflag.Bool("parse", false, "also print the extracted certificate")
	pflag.Parse()
	if pflag.NArg() != 1 {
		logger.Error("usage", "cmd", "coa-text [--raster] [--parse] <file>")
		os.Exit(2)
	}
	path := pflag.Arg(0)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	r, err := rules.Load(cfg.Pipeline.RulesFile)
	if err != nil {
		logger.Error("load rules", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ocrCfg := svc.OCRConfig(cfg.OCR)
	ocrCfg.EnableRaster = ocrCfg.EnableRaster || *raster
	textExtractor := extract.NewOCRAdapter(ocr.NewExtractor(ocrCfg, logger), logger)

	start := time.Now()
	text, err := textExtractor.ExtractFile(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"method", text.Method,
		"pages", text.Pages,
		"chars", text.Chars,
		"confidence", text.Confidence,
		"duration_ms", dur.Milliseconds(),
	)

	v, err := validate.New(r, logger)
	if err != nil {
		logger.Error("build validator", "error", err)
		os.Exit(1)
	}
	out := report{Text: text, Validation: v.Validate(text.Text)}
	if *parse && out.Validation.Passed {
		cert := extract.NewParser(r, logger).Parse(text.Text)
		out.Certificate = &cert
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		logger.Error("encode", "error", err)
		os.Exit(1)
	}
}
