package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSource yields the text of one 1-indexed page.
type pageSource struct {
	method string
	text   func(ctx context.Context, page int) (string, error)
}

// extractPDF tries each source in order for every page; the first non-blank text wins.
// Pages no source can read are logged and skipped.
func (e *Extractor) extractPDF(ctx context.Context, content []byte) ([]string, string, []string, error) {
	tmp, err := os.CreateTemp("", "coa-*.pdf")
	if err != nil {
		return nil, "", nil, fmt.Errorf("temp file: %w", err)
	}
	path := tmp.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			e.logger.Warn("ocr.tempfile.remove_failed", "path", path, "error", rmErr)
		}
	}()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return nil, "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, "", nil, fmt.Errorf("close temp file: %w", err)
	}

	pre := e.preflight(path)
	warnings := pre.warnings

	var sources []pageSource
	pageCount := pre.pages
	if !e.cfg.DisableNative {
		if r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content))); err != nil {
			warnings = append(warnings, "native reader: "+err.Error())
			e.logger.Warn("ocr.native.open_failed", "error", err)
		} else {
			pageCount = r.NumPage()
			sources = append(sources, pageSource{method: MethodNative, text: nativePage(r)})
		}
	}
	sources = append(sources, pageSource{method: MethodPdftotext, text: func(ctx context.Context, page int) (string, error) {
		return e.pdfToTextPage(ctx, path, page)
	}})
	if e.cfg.EnableRaster {
		sources = append(sources, pageSource{method: MethodRaster, text: func(ctx context.Context, page int) (string, error) {
			return e.pdfToOCRPage(ctx, path, page)
		}})
	}

	if pageCount <= 0 {
		// Neither reader could count pages; let pdftotext read the whole file.
		text, n, warns, err := e.pdfToText(ctx, path)
		warnings = append(warnings, warns...)
		if err != nil {
			return nil, "", warnings, fmt.Errorf("pdftotext: %w", err)
		}
		e.logger.Debug("ocr.pdftotext.whole", "pages", n)
		return strings.Split(text, "\f"), MethodPdftotext, warnings, nil
	}
	if e.cfg.MaxPages > 0 && pageCount > e.cfg.MaxPages {
		warnings = append(warnings, fmt.Sprintf("truncated to %d of %d pages", e.cfg.MaxPages, pageCount))
		pageCount = e.cfg.MaxPages
	}

	pages := make([]string, pageCount)
	used := map[string]int{}
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, "", warnings, err
		}
		for _, src := range sources {
			text, err := src.text(ctx, i)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("page %d %s: %v", i, src.method, err))
				continue
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			pages[i-1] = text
			used[src.method]++
			break
		}
		if pages[i-1] == "" {
			e.logger.Warn("ocr.page.empty", "page", i, "pages", pageCount)
		}
	}
	return pages, summarizeMethod(used), warnings, nil
}

func nativePage(r *pdf.Reader) func(context.Context, int) (string, error) {
	return func(_ context.Context, page int) (string, error) {
		p := r.Page(page)
		if p.V.IsNull() {
			return "", nil
		}
		return p.GetPlainText(nil)
	}
}

func (e *Extractor) pdfToTextPage(ctx context.Context, path string, page int) (string, error) {
	n := strconv.Itoa(page)
	// pdftotext -f N -l N -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-f", n, "-l", n, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, truncate(string(errb), 256))
	}
	return strings.Trim(string(out), "\f"), nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = strings.TrimRight(string(out), "\f")
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(text, "\f")
	return text, pages, nil, nil
}

func summarizeMethod(used map[string]int) string {
	switch len(used) {
	case 0:
		return ""
	case 1:
		for m := range used {
			return m
		}
	}
	return MethodMixed
}
