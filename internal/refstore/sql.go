package refstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

// SQLStore implements Store over an ent SQL driver, so the same queries run on Postgres and SQLite.
type SQLStore struct {
	drv    *entsql.Driver
	logger *slog.Logger

	mu    sync.RWMutex
	names []string // cached distinct canonical names; nil until first load
}

func NewSQLStore(drv *entsql.Driver, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{drv: drv, logger: logger}
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

func (s *SQLStore) queryStrings(ctx context.Context, query string, args []any) ([]string, error) {
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *SQLStore) firstString(ctx context.Context, query string, args []any) (string, error) {
	vals, err := s.queryStrings(ctx, query, args)
	if err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return "", common.ErrNotFound
	}
	return vals[0], nil
}

// FindName matches the canonical name case-insensitively.
func (s *SQLStore) FindName(ctx context.Context, name string) (string, error) {
	query, args := s.builder().
		Select(colNameEN).
		From(entsql.Table(TableLimits)).
		Where(entsql.EqualFold(colNameEN, name)).
		Limit(1).
		Query()
	return s.firstString(ctx, query, args)
}

// FindNameContaining returns a canonical name containing name, case-insensitively.
func (s *SQLStore) FindNameContaining(ctx context.Context, name string) (string, error) {
	query, args := s.builder().
		Select(colNameEN).
		From(entsql.Table(TableLimits)).
		Where(entsql.ContainsFold(colNameEN, name)).
		OrderBy(colNameEN).
		Limit(1).
		Query()
	return s.firstString(ctx, query, args)
}

// CanonicalNames lists distinct canonical names. The list is loaded once and reused.
func (s *SQLStore) CanonicalNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	names := s.names
	s.mu.RUnlock()
	if names != nil {
		return names, nil
	}

	query, args := s.builder().
		Select(colNameEN).
		Distinct().
		From(entsql.Table(TableLimits)).
		OrderBy(colNameEN).
		Query()
	names, err := s.queryStrings(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}

	s.mu.Lock()
	s.names = names
	s.mu.Unlock()
	s.logger.Debug("refstore.names.loaded", "count", len(names))
	return names, nil
}

// Invalidate drops the cached name list.
func (s *SQLStore) Invalidate() {
	s.mu.Lock()
	s.names = nil
	s.mu.Unlock()
}

// Lookup returns the limit for (substance, food) with its condition description.
func (s *SQLStore) Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error) {
	query, args := s.builder().
		Select(colNameEN, colNameKR, colFood, colLimit, colCondition).
		From(entsql.Table(TableLimits)).
		Where(entsql.And(
			entsql.EqualFold(colNameEN, substance),
			entsql.EQ(colFood, food),
		)).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return entity.ReferenceLimit{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return entity.ReferenceLimit{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		return entity.ReferenceLimit{}, common.ErrNotFound
	}
	var (
		ref   entity.ReferenceLimit
		kr    sql.NullString
		limit decimal.Decimal
		code  sql.NullString
	)
	if err := rows.Scan(&ref.Substance, &kr, &ref.Food, &limit, &code); err != nil {
		return entity.ReferenceLimit{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	rows.Close()
	ref.SubstanceKR = kr.String
	ref.Limit = limit
	if code.Valid && code.String != "" {
		c := code.String
		ref.ConditionCode = &c
		desc, err := s.conditionDescription(ctx, c)
		switch {
		case err == nil:
			ref.ConditionDescription = &desc
		case !common.IsNotFound(err):
			s.logger.Warn("refstore.condition.lookup_failed", "code", c, "error", err)
		}
	}
	return ref, nil
}

func (s *SQLStore) conditionDescription(ctx context.Context, code string) (string, error) {
	query, args := s.builder().
		Select(colDesc).
		From(entsql.Table(TableConditions)).
		Where(entsql.EQ(colCode, code)).
		Limit(1).
		Query()
	return s.firstString(ctx, query, args)
}

// LookupCategory returns the classification of a food.
func (s *SQLStore) LookupCategory(ctx context.Context, food string) (entity.FoodCategory, error) {
	query, args := s.builder().
		Select(colFood, colMain, colSub).
		From(entsql.Table(TableCategories)).
		Where(entsql.EQ(colFood, food)).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return entity.FoodCategory{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return entity.FoodCategory{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		return entity.FoodCategory{}, common.ErrNotFound
	}
	var (
		cat entity.FoodCategory
		sub sql.NullString
	)
	if err := rows.Scan(&cat.Food, &cat.MainCategory, &sub); err != nil {
		return entity.FoodCategory{}, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if sub.Valid && sub.String != "" {
		v := sub.String
		cat.SubCategory = &v
	}
	return cat, nil
}

// FoodExists reports whether any limit is recorded for the food.
func (s *SQLStore) FoodExists(ctx context.Context, food string) (bool, error) {
	query, args := s.builder().
		Select(colFood).
		From(entsql.Table(TableLimits)).
		Where(entsql.EQ(colFood, food)).
		Limit(1).
		Query()
	_, err := s.firstString(ctx, query, args)
	switch {
	case err == nil:
		return true, nil
	case common.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Foods lists every food named in the limit table or the classification, sorted.
func (s *SQLStore) Foods(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for _, table := range []string{TableLimits, TableCategories} {
		query, args := s.builder().
			Select(colFood).
			Distinct().
			From(entsql.Table(table)).
			Query()
		foods, err := s.queryStrings(ctx, query, args)
		if err != nil {
			return nil, err
		}
		for _, f := range foods {
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// Counts returns the row count of each reference table.
func (s *SQLStore) Counts(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	for _, table := range []string{TableLimits, TableConditions, TableCategories} {
		query, args := s.builder().
			Select(entsql.Count("*")).
			From(entsql.Table(table)).
			Query()
		rows := &entsql.Rows{}
		if err := s.drv.Query(ctx, query, args, rows); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		n, err := entsql.ScanInt(rows)
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		out[table] = n
	}
	return out, nil
}
