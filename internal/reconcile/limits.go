package reconcile

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// DefaultFloorMarker prefixes the display of the regulatory default limit.
const DefaultFloorMarker = "PLS"

// resolveLimit walks store, catalog, stated limit and default floor. The default floor keeps an
// unresolvable limit from reading as "no limit".
func (e *Engine) resolveLimit(ctx context.Context, row entity.ResultRow, foods []string, res *resolution) {
	for i, food := range foods {
		ref, err := e.store.Lookup(ctx, res.canonical, food)
		if err != nil {
			e.storeErr("lookup", err, "substance", res.canonical, "food", food)
			continue
		}
		res.source = constants.LimitFromReference
		if i > 0 {
			res.source = constants.LimitFromCategory
		}
		e.useReference(ref, res)
		return
	}

	if e.catalog != nil {
		for _, food := range foods {
			ref, err := e.catalog.Lookup(ctx, res.canonical, food)
			if err != nil {
				e.catalogMiss(err, res.canonical, food)
				continue
			}
			e.countCatalog(CatalogHit)
			e.logger.Debug("reconcile.limit.catalog", "substance", res.canonical, "food", food, "limit", ref.Limit.String())
			res.source = constants.LimitFromCatalog
			e.useReference(ref, res)
			return
		}
	}

	if row.StatedLimit != nil {
		limit := *row.StatedLimit
		res.limit, res.display, res.source = &limit, row.StatedLimitText, constants.LimitFromStated
		return
	}

	floor := e.rules.DefaultFloor
	res.limit = &floor
	res.display = DefaultFloorMarker + " " + floor.String()
	res.source = constants.LimitDefaultFloor
}

func (e *Engine) useReference(ref entity.ReferenceLimit, res *resolution) {
	limit := ref.Limit
	res.limit = &limit
	res.display = FormatLimit(limit, ref.ConditionCode)
}

func (e *Engine) catalogMiss(err error, substance, food string) {
	if errors.Is(err, common.ErrNotFound) {
		e.countCatalog(CatalogMiss)
		e.logger.Debug("reconcile.limit.catalog_miss", "substance", substance, "food", food)
		return
	}
	e.countCatalog(CatalogUnavailable)
	e.logger.Warn("reconcile.limit.catalog_unavailable", "substance", substance, "food", food, "error", err)
}

func (e *Engine) countCatalog(result string) {
	if e.metrics != nil {
		e.metrics.CatalogRequest(result)
	}
}

// FormatLimit renders a limit as an integer when whole, else with at most three decimals,
// followed by the condition code in parentheses.
func FormatLimit(limit decimal.Decimal, code *string) string {
	s := limit.Round(3).String()
	if code != nil && *code != "" {
		s += "(" + *code + ")"
	}
	return s
}
