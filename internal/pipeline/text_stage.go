package pipeline

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// Analyze recovers text, gates it through validation and extracts the certificate.
// The returned Result carries the text and verdict even when an error is returned.
func (p *Processor) Analyze(ctx context.Context, doc entity.Document) (Result, error) {
	logger := p.log(ctx).With("filename", doc.Filename)
	var res Result

	if constants.MapExtToFormat(doc.Ext) == "" {
		return res, fmt.Errorf("%w: unsupported format: %s", common.ErrInvalidInput, doc.Ext)
	}

	txt, err := p.Recover.Extract(ctx, doc)
	if err != nil {
		logger.Warn("pipeline.text.failed", "error", err)
		return res, err
	}
	res.Text = txt
	logger.Info("pipeline.text.ok",
		"method", txt.Method,
		"pages", txt.Pages,
		"chars", txt.Chars,
		"confidence", txt.Confidence,
	)

	verdict, err := p.Validate.Check(txt.Text)
	res.Verdict = verdict
	if err != nil {
		logger.Warn("pipeline.validate.failed", "missing", verdict.MissingElements, "issuer_ok", verdict.IssuerOK)
		return res, err
	}

	res.Certificate = p.Parse.Parse(txt.Text)
	p.Metrics.Rows(len(res.Certificate.Rows))
	return res, nil
}
