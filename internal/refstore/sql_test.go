package refstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

func strPtr(s string) *string { return &s }

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := EnsureSchema(ctx, drv); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Running the schema twice is a no-op.
	if err := EnsureSchema(ctx, drv); err != nil {
		t.Fatalf("EnsureSchema (again): %v", err)
	}

	limits := []entity.ReferenceLimit{
		{Substance: "Chlorpyrifos", SubstanceKR: "클로르피리포스", Food: "사과", Limit: decimal.RequireFromString("0.5")},
		{Substance: "Chlorpyrifos", SubstanceKR: "클로르피리포스", Food: "들깻잎", Limit: decimal.RequireFromString("0.05"), ConditionCode: strPtr("E")},
		{Substance: "Chlorpyrifos-methyl", Food: "사과", Limit: decimal.RequireFromString("1")},
		{Substance: "Boscalid", Food: "엽채류", Limit: decimal.RequireFromString("30")},
	}
	categories := []entity.FoodCategory{
		{Food: "상추", MainCategory: "채소류", SubCategory: strPtr("엽채류")},
		{Food: "배추", MainCategory: "채소류"},
	}
	codes := []entity.ConditionCode{{Code: "E", Description: "잠정기준"}}
	if err := Seed(ctx, drv, limits, categories, codes); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return NewSQLStore(drv, nil)
}

func TestFindName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.FindName(ctx, "CHLORPYRIFOS")
	if err != nil || got != "Chlorpyrifos" {
		t.Fatalf("FindName exact = %q, %v", got, err)
	}
	if _, err := s.FindName(ctx, "Captan"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("FindName miss err = %v, want ErrNotFound", err)
	}

	got, err = s.FindNameContaining(ctx, "boscal")
	if err != nil || got != "Boscalid" {
		t.Fatalf("FindNameContaining = %q, %v", got, err)
	}
	if _, err := s.FindNameContaining(ctx, "zzz"); !common.IsNotFound(err) {
		t.Fatalf("FindNameContaining miss err = %v", err)
	}
}

func TestCanonicalNamesCached(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	names, err := s.CanonicalNames(ctx)
	if err != nil {
		t.Fatalf("CanonicalNames: %v", err)
	}
	want := []string{"Boscalid", "Chlorpyrifos", "Chlorpyrifos-methyl"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("CanonicalNames mismatch (-want +got):\n%s", diff)
	}

	// New rows are not visible until the cache is dropped.
	err = Seed(ctx, s.drv, []entity.ReferenceLimit{{Substance: "Azoxystrobin", Food: "사과", Limit: decimal.RequireFromString("0.3")}}, nil, nil)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	names, _ = s.CanonicalNames(ctx)
	if len(names) != 3 {
		t.Fatalf("cached names = %v, want 3 entries", names)
	}
	s.Invalidate()
	names, _ = s.CanonicalNames(ctx)
	if len(names) != 4 || names[0] != "Azoxystrobin" {
		t.Fatalf("names after Invalidate = %v", names)
	}
}

func TestLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ref, err := s.Lookup(ctx, "chlorpyrifos", "들깻잎")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ref.Limit.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("Limit = %s, want 0.05", ref.Limit)
	}
	if ref.ConditionCode == nil || *ref.ConditionCode != "E" {
		t.Errorf("ConditionCode = %v, want E", ref.ConditionCode)
	}
	if ref.ConditionDescription == nil || *ref.ConditionDescription != "잠정기준" {
		t.Errorf("ConditionDescription = %v", ref.ConditionDescription)
	}
	if ref.SubstanceKR != "클로르피리포스" {
		t.Errorf("SubstanceKR = %q", ref.SubstanceKR)
	}

	ref, err = s.Lookup(ctx, "Chlorpyrifos", "사과")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ref.ConditionCode != nil || ref.ConditionDescription != nil {
		t.Errorf("unexpected condition on plain limit: %+v", ref)
	}

	if _, err := s.Lookup(ctx, "Chlorpyrifos", "배"); !common.IsNotFound(err) {
		t.Fatalf("Lookup miss err = %v", err)
	}
}

func TestCategoriesAndFoods(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cat, err := s.LookupCategory(ctx, "상추")
	if err != nil {
		t.Fatalf("LookupCategory: %v", err)
	}
	if cat.MainCategory != "채소류" || cat.SubCategory == nil || *cat.SubCategory != "엽채류" {
		t.Errorf("LookupCategory = %+v", cat)
	}
	cat, err = s.LookupCategory(ctx, "배추")
	if err != nil || cat.SubCategory != nil {
		t.Errorf("LookupCategory without sub = %+v, %v", cat, err)
	}
	if _, err := s.LookupCategory(ctx, "사과"); !common.IsNotFound(err) {
		t.Errorf("LookupCategory miss err = %v", err)
	}

	tests := []struct {
		food string
		want bool
	}{
		{"사과", true},
		{"엽채류", true},
		{"상추", false}, // only classified, no limits of its own
		{"바나나", false},
	}
	for _, tt := range tests {
		got, err := s.FoodExists(ctx, tt.food)
		if err != nil {
			t.Fatalf("FoodExists(%q): %v", tt.food, err)
		}
		if got != tt.want {
			t.Errorf("FoodExists(%q) = %v, want %v", tt.food, got, tt.want)
		}
	}

	foods, err := s.Foods(ctx)
	if err != nil {
		t.Fatalf("Foods: %v", err)
	}
	want := []string{"들깻잎", "배추", "사과", "상추", "엽채류"}
	if diff := cmp.Diff(want, foods); diff != "" {
		t.Errorf("Foods mismatch (-want +got):\n%s", diff)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	wantCounts := map[string]int{TableLimits: 4, TableConditions: 1, TableCategories: 2}
	if diff := cmp.Diff(wantCounts, counts); diff != "" {
		t.Errorf("Counts mismatch (-want +got):\n%s", diff)
	}
}
