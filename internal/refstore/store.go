// Package refstore is the read-only reference-limit table: pesticide limits per food, their
// condition codes and the food classification used for category fallback.
package refstore

import (
	"context"

	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// Store is the query surface consumed by reconciliation and intake.
// Every single-row lookup reports a miss as common.ErrNotFound.
type Store interface {
	FindName(ctx context.Context, name string) (string, error)
	FindNameContaining(ctx context.Context, name string) (string, error)
	CanonicalNames(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error)
	LookupCategory(ctx context.Context, food string) (entity.FoodCategory, error)
	FoodExists(ctx context.Context, food string) (bool, error)
	Foods(ctx context.Context) ([]string, error)
}

// Table and column names.
const (
	TableLimits     = "pesticide_limits"
	TableConditions = "limit_condition_codes"
	TableCategories = "food_categories"

	colNameEN    = "pesticide_name_en"
	colNameKR    = "pesticide_name_kr"
	colFood      = "food_name"
	colLimit     = "max_residue_limit"
	colCondition = "condition_code"
	colCode      = "code"
	colDesc      = "description"
	colMain      = "main_category"
	colSub       = "sub_category"
)
