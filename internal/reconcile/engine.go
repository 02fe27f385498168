// Package reconcile cross-checks extracted result rows against reference limits.
package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
)

// ReferenceStore is the read-only limit table. Misses are reported as common.ErrNotFound.
type ReferenceStore interface {
	FindName(ctx context.Context, name string) (string, error)
	FindNameContaining(ctx context.Context, name string) (string, error)
	CanonicalNames(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error)
}

// Catalog is the remote last-resort limit lookup.
type Catalog interface {
	Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error)
}

// Metrics receives per-row resolution outcomes.
type Metrics interface {
	NameResolved(tier constants.NameTier)
	LimitResolved(source constants.LimitSource)
	CatalogRequest(result string)
}

// Catalog request results reported to Metrics.
const (
	CatalogHit         = "hit"
	CatalogMiss        = "miss"
	CatalogUnavailable = "unavailable"
)

type Engine struct {
	store   ReferenceStore
	catalog Catalog
	rules   rules.Rules
	metrics Metrics
	logger  *slog.Logger
}

// NewEngine builds an engine. A nil catalog skips the remote tier.
func NewEngine(store ReferenceStore, catalog Catalog, r rules.Rules, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, catalog: catalog, rules: r, logger: logger}
}

// WithMetrics sets the metrics hook and returns the engine.
func (e *Engine) WithMetrics(m Metrics) *Engine {
	e.metrics = m
	return e
}

// Input is one certificate's rows plus the document-level context needed to verify them.
type Input struct {
	Rows              []entity.ResultRow
	SampleDescription string
	// FallbackFoods are tried after the sample food, usually its sub and main category.
	FallbackFoods []string
	Purpose       string
	// IsPlantMaterial overrides detection from the sample description when set.
	IsPlantMaterial *bool
}

// resolution holds every resolved quantity of one row. All fields start empty.
type resolution struct {
	canonical string
	nameMatch bool
	tier      constants.NameTier
	limit     *decimal.Decimal
	display   string
	source    constants.LimitSource
}

// Verify returns one record per input row, in order. It never fails: store and catalog
// errors degrade to the next tier.
func (e *Engine) Verify(ctx context.Context, in Input) []entity.VerificationRecord {
	food := e.rules.MapFood(in.SampleDescription)
	eco := e.rules.EcoTrigger != "" && strings.Contains(in.Purpose, e.rules.EcoTrigger)
	plant := e.rules.PlantTrigger != "" && strings.Contains(in.SampleDescription, e.rules.PlantTrigger)
	if in.IsPlantMaterial != nil {
		plant = *in.IsPlantMaterial
	}
	foods := candidateFoods(food, in.FallbackFoods)

	out := make([]entity.VerificationRecord, 0, len(in.Rows))
	for i, row := range in.Rows {
		var rec entity.VerificationRecord
		if plant {
			rec = e.verifyPlant(row, eco)
		} else {
			rec = e.verifyRow(ctx, row, foods, eco)
		}
		rec.Position = i
		out = append(out, rec)
	}

	inconsistent := 0
	for _, r := range out {
		if !r.Consistent {
			inconsistent++
		}
	}
	e.logger.Info("reconcile.ok",
		"food", food,
		"rows", len(out),
		"inconsistent", inconsistent,
		"eco_friendly", eco,
		"plant_material", plant,
	)
	return out
}

func (e *Engine) verifyRow(ctx context.Context, row entity.ResultRow, foods []string, eco bool) entity.VerificationRecord {
	var res resolution
	e.resolveName(ctx, row, &res)
	e.resolveLimit(ctx, row, foods, &res)
	e.observe(res)

	rec := baseRecord(row, eco, false)
	rec.CanonicalName = res.canonical
	rec.NameMatch = res.nameMatch
	rec.NameTier = res.tier
	rec.ResolvedLimit = res.limit
	rec.ResolvedLimitDisplay = res.display
	rec.LimitSource = res.source

	if eco {
		v := constants.FromBool(row.Detection.LessThan(e.rules.EcoThreshold))
		rec.StatedRegimeVerdict, rec.ResolvedRegimeVerdict = v, v
	} else {
		rec.StatedRegimeVerdict = compare(row.Detection, row.StatedLimit)
		rec.ResolvedRegimeVerdict = compare(row.Detection, res.limit)
	}
	rec.LimitAgreement = agreement(row.StatedLimitText, res.display, e.rules.LimitTolerance)
	rec.Consistent = rec.StatedOpinion == rec.ResolvedRegimeVerdict &&
		rec.ResolvedRegimeVerdict != constants.Indeterminate &&
		rec.LimitAgreement.Agrees()

	e.logger.Debug("reconcile.row",
		"name", row.Name,
		"canonical", res.canonical,
		"tier", res.tier,
		"limit", res.display,
		"source", res.source,
		"stated", row.StatedOpinion,
		"resolved", rec.ResolvedRegimeVerdict,
		"agreement", rec.LimitAgreement,
		"consistent", rec.Consistent,
	)
	return rec
}

// verifyPlant applies the whole-plant regime: no numeric limit exists, so the certificate must
// state "-" for both limit and opinion.
func (e *Engine) verifyPlant(row entity.ResultRow, eco bool) entity.VerificationRecord {
	rec := baseRecord(row, eco, true)
	rec.CanonicalName = row.LookupName
	rec.NameMatch = true
	rec.NameTier = constants.NamePlant
	rec.ResolvedLimitDisplay = string(constants.NotApplicable)
	rec.LimitSource = constants.LimitPlant
	rec.StatedLimit = nil

	limitOK := strings.TrimSpace(row.StatedLimitText) == string(constants.NotApplicable)
	opinionOK := row.StatedOpinion == constants.NotApplicable
	rec.LimitAgreement = constants.AgreementMismatch
	if limitOK {
		rec.LimitAgreement = constants.AgreementExact
	}

	if eco {
		below := row.Detection.LessThan(e.rules.EcoThreshold)
		v := constants.FromBool(below)
		rec.StatedRegimeVerdict, rec.ResolvedRegimeVerdict = v, v
		rec.Consistent = limitOK && opinionOK && below
	} else {
		rec.StatedRegimeVerdict = constants.Indeterminate
		if limitOK && opinionOK {
			rec.StatedRegimeVerdict = constants.NotApplicable
		}
		rec.ResolvedRegimeVerdict = constants.NotApplicable
		rec.Consistent = limitOK && opinionOK
	}
	if e.metrics != nil {
		e.metrics.NameResolved(constants.NamePlant)
		e.metrics.LimitResolved(constants.LimitPlant)
	}
	return rec
}

func baseRecord(row entity.ResultRow, eco, plant bool) entity.VerificationRecord {
	name := row.LookupName
	if name == "" {
		name = row.Name
	}
	return entity.VerificationRecord{
		Name:            row.Name,
		CanonicalName:   name,
		Detection:       row.Detection,
		StatedLimit:     row.StatedLimit,
		StatedLimitText: row.StatedLimitText,
		ExportCountry:   row.ExportCountry,
		ExportLimit:     row.ExportLimit,
		StatedOpinion:   row.StatedOpinion,
		IsEcoFriendly:   eco,
		IsPlantMaterial: plant,
	}
}

func (e *Engine) observe(res resolution) {
	if e.metrics == nil {
		return
	}
	e.metrics.NameResolved(res.tier)
	e.metrics.LimitResolved(res.source)
}

// candidateFoods returns the sample food followed by distinct non-empty fallbacks.
func candidateFoods(food string, fallbacks []string) []string {
	out := make([]string, 0, 1+len(fallbacks))
	seen := map[string]bool{}
	for _, f := range append([]string{food}, fallbacks...) {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// storeErr logs a store failure that is not a plain miss.
func (e *Engine) storeErr(op string, err error, args ...any) {
	if err == nil || common.IsNotFound(err) {
		return
	}
	e.logger.Warn("reconcile.store.error", append([]any{"op", op, "error", err}, args...)...)
}
