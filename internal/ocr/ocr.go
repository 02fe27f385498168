package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "kor+eng"
	DPI           int    // rasterization DPI for scanned pages, default 300
	MaxPages      int    // 0 = no limit

	// EnableRaster turns on pdftoppm+tesseract for pages without a text layer.
	EnableRaster bool
	// DisableNative skips the in-process PDF reader.
	DisableNative bool

	MinChars int // default 50

	// CommandTimeout bounds each external command; default 60s.
	CommandTimeout time.Duration
}

// Extraction methods, reported per document.
const (
	MethodNative    = "pdf-native"
	MethodPdftotext = "pdftotext"
	MethodRaster    = "pdf-ocr"
	MethodPlain     = "plain-text"
	MethodMixed     = "mixed"
)

// EmptyDocumentError is returned when the recovered text is below the content floor.
type EmptyDocumentError struct {
	Chars int
	Min   int
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("empty document: recovered %d chars, need at least %d", e.Chars, e.Min)
}

func (e *EmptyDocumentError) Unwrap() error { return common.ErrEmptyDocument }

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "kor+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = 50
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 60 * time.Second
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger, timeout: cfg.CommandTimeout}, logger: logger}
}

// Extract recovers the text of a document page by page.
// Returns *EmptyDocumentError when the joined text is shorter than MinChars.
func (e *Extractor) Extract(ctx context.Context, doc entity.Document) (entity.RecoveredText, error) {
	start := time.Now()
	ext := constants.NormalizeExt(doc.Ext)
	e.logger.Debug("ocr.start", "filename", doc.Filename, "ext", ext, "bytes", len(doc.Content))

	var (
		pages    []string
		method   string
		warnings []string
		err      error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		pages, method, warnings, err = e.extractPDF(ctx, doc.Content)
	case constants.TXT:
		pages, method = splitPlainText(doc.Content), MethodPlain
	default:
		e.logger.Error("ocr.unsupported", "filename", doc.Filename, "ext", ext)
		return entity.RecoveredText{}, fmt.Errorf("unsupported extension %q: %w", ext, common.ErrInvalidInput)
	}
	if err != nil {
		return entity.RecoveredText{Warnings: warnings}, err
	}

	res := assemble(pages)
	res.Method = method
	res.Warnings = warnings
	res.Confidence = heuristicConfidence(res.Text)

	if res.Chars < e.cfg.MinChars {
		e.logger.Warn("ocr.empty_document",
			"filename", doc.Filename, "chars", res.Chars, "min_chars", e.cfg.MinChars, "pages", res.Pages)
		return res, &EmptyDocumentError{Chars: res.Chars, Min: e.cfg.MinChars}
	}

	e.logger.Info("ocr.ok",
		"filename", doc.Filename,
		"method", res.Method,
		"pages", res.Pages,
		"pages_with_text", res.PagesWithText,
		"chars", res.Chars,
		"confidence", res.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// IsEmptyDocument reports whether err came from the content floor check.
func IsEmptyDocument(err error) bool {
	var ede *EmptyDocumentError
	return errors.As(err, &ede)
}

func splitPlainText(content []byte) []string {
	return strings.Split(string(content), "\f")
}

// assemble joins non-blank pages with a newline and normalizes the result.
func assemble(pages []string) entity.RecoveredText {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	text := Normalize(strings.Join(kept, "\n"))
	lines := 0
	if text != "" {
		lines = strings.Count(text, "\n") + 1
	}
	return entity.RecoveredText{
		Text:          text,
		Pages:         len(pages),
		PagesWithText: len(kept),
		Chars:         utf8.RuneCountInString(text),
		Lines:         lines,
	}
}
