package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// pdfToOCRPage rasterizes one page and runs tesseract on it.
func (e *Extractor) pdfToOCRPage(ctx context.Context, path string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "coa-pp-*")
	if err != nil {
		return "", err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("ocr.tempdir.remove_failed", "path", dir, "error", err)
		}
	}(tmpDir)

	n := strconv.Itoa(page)
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -f N -l N -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.DPI), "-f", n, "-l", n, "-png", "-singlefile", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 256))
	}
	img := prefix + ".png"
	if _, statErr := os.Stat(img); statErr != nil {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return e.tesseractOCR(ctx, img)
}

func (e *Extractor) tesseractOCR(ctx context.Context, img string) (string, error) {
	// tesseract <img> stdout -l kor+eng --psm 6
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, img, "stdout", "-l", e.cfg.TesseractLang, "--psm", "6")
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 256))
	}
	return string(out), nil
}
