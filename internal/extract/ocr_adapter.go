package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// OCRAdapter recovers text straight from a file on disk.
type OCRAdapter struct {
	r      TextRecoverer
	logger *slog.Logger
}

func NewOCRAdapter(r TextRecoverer, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{r: r, logger: logger}
}

func (a *OCRAdapter) ExtractFile(ctx context.Context, path string) (entity.RecoveredText, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return entity.RecoveredText{}, err
	}
	a.logger.Debug("extract.file", "path", path, "bytes", len(doc.Content))
	return a.r.Extract(ctx, doc)
}

// ReadDocument loads a file into a Document, taking the extension from its name.
func ReadDocument(path string) (entity.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return entity.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return entity.Document{
		Filename: filepath.Base(path),
		Ext:      constants.NormalizeExt(filepath.Ext(path)),
		Content:  b,
	}, nil
}
