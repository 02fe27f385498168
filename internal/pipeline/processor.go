// Package pipeline runs one certificate through text recovery, validation, extraction and
// reconciliation.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/extract"
	"github.com/joseph-ayodele/coa-verifier/internal/reconcile"
	"github.com/joseph-ayodele/coa-verifier/internal/validate"
)

// Processor coordinates text recovery, validation, extraction, then reconciliation.
type Processor struct {
	Logger   *slog.Logger
	Recover  extract.TextRecoverer
	Validate *validate.Validator
	Parse    *extract.Parser
	Verify   *reconcile.Engine
	Metrics  *Metrics
}

func NewProcessor(logger *slog.Logger, rec extract.TextRecoverer, v *validate.Validator, parse *extract.Parser, verify *reconcile.Engine, m *Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if m != nil {
		verify.WithMetrics(m)
	}
	return &Processor{Logger: logger, Recover: rec, Validate: v, Parse: parse, Verify: verify, Metrics: m}
}

// Request is one document plus caller choices.
type Request struct {
	Document entity.Document
	// SelectedFood replaces the extracted sample description when set.
	SelectedFood  string
	FallbackFoods []string
}

// Result holds everything a run produced, even when it stopped early.
type Result struct {
	Text          entity.RecoveredText        `json:"text"`
	Verdict       entity.ValidationVerdict    `json:"validation"`
	Certificate   entity.CertificateRecord    `json:"certificate"`
	Verifications []entity.VerificationRecord `json:"verifications"`
}

// Process runs every stage. Only empty-document and validation failures are returned as
// errors; everything downstream degrades into the records.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	ctx, _ = common.EnsureRequestID(ctx)
	res, err := p.Analyze(ctx, req.Document)
	if err != nil {
		p.Metrics.Document(OutcomeFor(err))
		return res, err
	}
	p.ApplySelectedFood(&res.Certificate, req.SelectedFood)
	res.Verifications = p.Reconcile(ctx, res.Certificate, req.FallbackFoods)
	p.Metrics.Document(constants.OutcomeVerified)
	return res, nil
}

// OutcomeFor maps a Process/Analyze error onto the outcome it is counted under.
func OutcomeFor(err error) constants.Outcome {
	switch {
	case err == nil:
		return constants.OutcomeVerified
	case errors.Is(err, common.ErrEmptyDocument):
		return constants.OutcomeEmpty
	case errors.Is(err, common.ErrValidationFailed):
		return constants.OutcomeInvalid
	default:
		return constants.OutcomeFailed
	}
}

func (p *Processor) log(ctx context.Context) *slog.Logger {
	if id := common.RequestIDFromContext(ctx); id != "" {
		return p.Logger.With("req_id", id)
	}
	return p.Logger
}
