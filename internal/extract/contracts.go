package extract

import (
	"context"

	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// TextRecoverer is Stage 1: document -> text.
type TextRecoverer interface {
	Extract(ctx context.Context, doc entity.Document) (entity.RecoveredText, error)
}

// CertificateParser is Stage 3: validated text -> certificate fields and result rows.
type CertificateParser interface {
	Parse(text string) entity.CertificateRecord
}
