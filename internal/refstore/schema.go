package refstore

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

func ddl(d string) []string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == dialect.Postgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + TableConditions + ` (
			code VARCHAR(10) PRIMARY KEY,
			description TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + TableLimits + ` (
			id ` + serial + `,
			pesticide_name_kr VARCHAR(200),
			pesticide_name_en VARCHAR(200) NOT NULL,
			food_name VARCHAR(200) NOT NULL,
			max_residue_limit NUMERIC(10,3) NOT NULL,
			condition_code VARCHAR(10) REFERENCES ` + TableConditions + `(code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pesticide_limits_name_food ON ` + TableLimits + ` (pesticide_name_en, food_name)`,
		`CREATE TABLE IF NOT EXISTS ` + TableCategories + ` (
			id ` + serial + `,
			main_category VARCHAR(100) NOT NULL,
			sub_category VARCHAR(100),
			food_name VARCHAR(200) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_food_categories_food ON ` + TableCategories + ` (food_name)`,
	}
}

// EnsureSchema creates the reference tables when missing.
func EnsureSchema(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range ddl(drv.Dialect()) {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("refstore schema: %w", err)
		}
	}
	return nil
}

// Seed inserts reference rows in one transaction.
func Seed(ctx context.Context, drv *entsql.Driver, limits []entity.ReferenceLimit, categories []entity.FoodCategory, codes []entity.ConditionCode) (err error) {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b := entsql.Dialect(drv.Dialect())
	for _, c := range codes {
		query, args := b.Insert(TableConditions).Columns(colCode, colDesc).Values(c.Code, c.Description).Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("seed condition %q: %w", c.Code, err)
		}
	}
	for _, l := range limits {
		var code any
		if l.ConditionCode != nil {
			code = *l.ConditionCode
		}
		query, args := b.Insert(TableLimits).
			Columns(colNameKR, colNameEN, colFood, colLimit, colCondition).
			Values(l.SubstanceKR, l.Substance, l.Food, l.Limit.String(), code).
			Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("seed limit %s/%s: %w", l.Substance, l.Food, err)
		}
	}
	for _, c := range categories {
		var sub any
		if c.SubCategory != nil {
			sub = *c.SubCategory
		}
		query, args := b.Insert(TableCategories).
			Columns(colMain, colSub, colFood).
			Values(c.MainCategory, sub, c.Food).
			Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Food, err)
		}
	}
	return tx.Commit()
}
