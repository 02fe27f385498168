package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
)

type fakeStore struct {
	names  []string
	limits map[string]entity.ReferenceLimit // key substance|food
	err    error
}

func (f *fakeStore) FindName(_ context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for _, n := range f.names {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	return "", common.ErrNotFound
}

func (f *fakeStore) FindNameContaining(_ context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for _, n := range f.names {
		if strings.Contains(strings.ToLower(n), strings.ToLower(name)) {
			return n, nil
		}
	}
	return "", common.ErrNotFound
}

func (f *fakeStore) CanonicalNames(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.names, nil
}

func (f *fakeStore) Lookup(_ context.Context, substance, food string) (entity.ReferenceLimit, error) {
	if f.err != nil {
		return entity.ReferenceLimit{}, f.err
	}
	if l, ok := f.limits[substance+"|"+food]; ok {
		return l, nil
	}
	return entity.ReferenceLimit{}, common.ErrNotFound
}

type fakeCatalog struct {
	limits map[string]entity.ReferenceLimit
	err    error
	calls  int
}

func (f *fakeCatalog) Lookup(_ context.Context, substance, food string) (entity.ReferenceLimit, error) {
	f.calls++
	if f.err != nil {
		return entity.ReferenceLimit{}, f.err
	}
	if l, ok := f.limits[substance+"|"+food]; ok {
		return l, nil
	}
	return entity.ReferenceLimit{}, common.ErrNotFound
}

type countingMetrics struct {
	tiers   map[constants.NameTier]int
	sources map[constants.LimitSource]int
	catalog map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		tiers:   map[constants.NameTier]int{},
		sources: map[constants.LimitSource]int{},
		catalog: map[string]int{},
	}
}

func (m *countingMetrics) NameResolved(t constants.NameTier)      { m.tiers[t]++ }
func (m *countingMetrics) LimitResolved(s constants.LimitSource) { m.sources[s]++ }
func (m *countingMetrics) CatalogRequest(r string)               { m.catalog[r]++ }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func ref(substance, food, limit string, code ...string) entity.ReferenceLimit {
	l := entity.ReferenceLimit{Substance: substance, Food: food, Limit: dec(limit)}
	if len(code) > 0 {
		l.ConditionCode = &code[0]
	}
	return l
}

func row(name, det, limitText string, opinion constants.Opinion) entity.ResultRow {
	r := entity.ResultRow{
		Name:            name,
		LookupName:      name,
		Detection:       dec(det),
		DetectionText:   det,
		StatedLimitText: limitText,
		StatedOpinion:   opinion,
	}
	if limitText != "-" {
		r.StatedLimit = decPtr(strings.TrimRight(limitText, "†T*"))
	}
	return r
}

func appleStore() *fakeStore {
	return &fakeStore{
		names: []string{"Chlorpyrifos", "Diazinon", "Bifenthrin"},
		limits: map[string]entity.ReferenceLimit{
			"Chlorpyrifos|사과": ref("Chlorpyrifos", "사과", "0.05"),
			"Diazinon|사과":     ref("Diazinon", "사과", "0.1", "T"),
		},
	}
}

func verifyOne(t *testing.T, e *Engine, in Input) entity.VerificationRecord {
	t.Helper()
	out := e.Verify(context.Background(), in)
	if len(out) != 1 {
		t.Fatalf("records = %d, want 1", len(out))
	}
	return out[0]
}

func TestConsistencyScenario(t *testing.T) {
	e := NewEngine(appleStore(), nil, rules.Default(), nil)
	rec := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Chlorpyrifos", "0.05", "0.05", constants.Compliant)},
		SampleDescription: "사과",
	})
	if !rec.Consistent {
		t.Fatalf("record not consistent: %+v", rec)
	}
	if rec.StatedRegimeVerdict != constants.Compliant || rec.ResolvedRegimeVerdict != constants.Compliant {
		t.Errorf("verdicts = %s/%s", rec.StatedRegimeVerdict, rec.ResolvedRegimeVerdict)
	}
	if rec.LimitAgreement != constants.AgreementExact || rec.LimitSource != constants.LimitFromReference {
		t.Errorf("agreement=%s source=%s", rec.LimitAgreement, rec.LimitSource)
	}
	if !rec.NameMatch || rec.NameTier != constants.NameExact {
		t.Errorf("name match=%t tier=%s", rec.NameMatch, rec.NameTier)
	}
}

func TestMismatchedLimitScenario(t *testing.T) {
	e := NewEngine(appleStore(), nil, rules.Default(), nil)
	rec := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Chlorpyrifos", "0.05", "0.1", constants.Compliant)},
		SampleDescription: "사과",
	})
	if rec.StatedRegimeVerdict != constants.Compliant {
		t.Errorf("pdf calculated = %s, want 적합", rec.StatedRegimeVerdict)
	}
	if rec.ResolvedRegimeVerdict != constants.Compliant {
		t.Errorf("db calculated = %s, want 적합", rec.ResolvedRegimeVerdict)
	}
	if rec.LimitAgreement != constants.AgreementMismatch || rec.Consistent {
		t.Errorf("agreement=%s consistent=%t, want mismatch/false", rec.LimitAgreement, rec.Consistent)
	}
}

func TestEcoFriendlyThreshold(t *testing.T) {
	store := appleStore()
	store.limits["Chlorpyrifos|사과"] = ref("Chlorpyrifos", "사과", "0.005")
	e := NewEngine(store, nil, rules.Default(), nil)

	tests := []struct {
		det  string
		want constants.Opinion
	}{
		{"0.009", constants.Compliant},
		{"0.01", constants.NonCompliant},
	}
	for _, tt := range tests {
		rec := verifyOne(t, e, Input{
			Rows:              []entity.ResultRow{row("Chlorpyrifos", tt.det, "0.005", constants.Compliant)},
			SampleDescription: "사과",
			Purpose:           "친환경 인증용",
		})
		if rec.StatedRegimeVerdict != tt.want || rec.ResolvedRegimeVerdict != tt.want {
			t.Errorf("det %s: verdicts %s/%s, want %s", tt.det, rec.StatedRegimeVerdict, rec.ResolvedRegimeVerdict, tt.want)
		}
		if !rec.IsEcoFriendly {
			t.Errorf("det %s: eco flag not set", tt.det)
		}
	}
}

func TestPlantMaterial(t *testing.T) {
	e := NewEngine(appleStore(), nil, rules.Default(), nil)

	rec := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Chlorpyrifos", "0.3", "-", constants.NotApplicable)},
		SampleDescription: "고추 작물체",
	})
	if !rec.Consistent || rec.StatedRegimeVerdict != constants.NotApplicable {
		t.Fatalf("plant record = %+v", rec)
	}
	if rec.ResolvedLimit != nil || rec.ResolvedLimitDisplay != "-" || !rec.IsPlantMaterial || !rec.NameMatch {
		t.Errorf("plant record = %+v", rec)
	}

	rec = verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Chlorpyrifos", "0.3", "0.5", constants.Compliant)},
		SampleDescription: "고추 작물체",
	})
	if rec.Consistent || rec.StatedRegimeVerdict != constants.Indeterminate || rec.StatedLimit != nil {
		t.Errorf("plant record with a limit = %+v", rec)
	}

	eco := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Chlorpyrifos", "0.009", "-", constants.NotApplicable)},
		SampleDescription: "고추 작물체",
		Purpose:           "친환경 인증용",
	})
	if !eco.Consistent || eco.ResolvedRegimeVerdict != constants.Compliant {
		t.Errorf("eco plant record = %+v", eco)
	}

	notPlant := false
	rec = verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Chlorpyrifos", "0.05", "0.05", constants.Compliant)},
		SampleDescription: "사과 작물체",
		IsPlantMaterial:   &notPlant,
	})
	if rec.IsPlantMaterial || rec.LimitSource == constants.LimitPlant {
		t.Errorf("override ignored: %+v", rec)
	}
}

func TestDefaultFloorSafety(t *testing.T) {
	catalog := &fakeCatalog{}
	e := NewEngine(&fakeStore{}, catalog, rules.Default(), nil)
	rec := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Unknownazole", "0.02", "-", constants.Compliant)},
		SampleDescription: "사과",
	})
	if rec.ResolvedLimit == nil || !rec.ResolvedLimit.Equal(dec("0.01")) {
		t.Fatalf("resolved limit = %v, want 0.01", rec.ResolvedLimit)
	}
	if rec.ResolvedLimitDisplay != "PLS 0.01" || rec.LimitSource != constants.LimitDefaultFloor {
		t.Errorf("display=%q source=%s", rec.ResolvedLimitDisplay, rec.LimitSource)
	}
	if rec.ResolvedRegimeVerdict != constants.NonCompliant || rec.Consistent {
		t.Errorf("verdict=%s consistent=%t", rec.ResolvedRegimeVerdict, rec.Consistent)
	}
	if rec.StatedRegimeVerdict != constants.Indeterminate {
		t.Errorf("stated verdict = %s, want 확인불가", rec.StatedRegimeVerdict)
	}
	if rec.NameTier != constants.NameVerbatim || rec.NameMatch {
		t.Errorf("tier=%s match=%t", rec.NameTier, rec.NameMatch)
	}
	if catalog.calls != 1 {
		t.Errorf("catalog calls = %d, want 1", catalog.calls)
	}
}

func TestCatalogUnavailableFallsBackToStated(t *testing.T) {
	m := newCountingMetrics()
	catalog := &fakeCatalog{err: fmt.Errorf("dial: %w", common.ErrCatalogUnavailable)}
	e := NewEngine(&fakeStore{}, catalog, rules.Default(), nil).WithMetrics(m)
	rec := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Unknownazole", "0.02", "0.05", constants.Compliant)},
		SampleDescription: "사과",
	})
	if rec.LimitSource != constants.LimitFromStated || rec.ResolvedLimitDisplay != "0.05" || !rec.Consistent {
		t.Errorf("record = %+v", rec)
	}
	if m.catalog[CatalogUnavailable] != 1 || m.sources[constants.LimitFromStated] != 1 || m.tiers[constants.NameVerbatim] != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestCatalogHit(t *testing.T) {
	catalog := &fakeCatalog{limits: map[string]entity.ReferenceLimit{
		"Diazinon|배": ref("Diazinon", "배", "0.2", "†"),
	}}
	e := NewEngine(appleStore(), catalog, rules.Default(), nil)
	rec := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Diazinon", "0.1", "0.2†", constants.Compliant)},
		SampleDescription: "배",
	})
	if rec.LimitSource != constants.LimitFromCatalog || rec.ResolvedLimitDisplay != "0.2(†)" {
		t.Errorf("source=%s display=%q", rec.LimitSource, rec.ResolvedLimitDisplay)
	}
	if rec.LimitAgreement != constants.AgreementFormatOnly || !rec.Consistent {
		t.Errorf("agreement=%s consistent=%t", rec.LimitAgreement, rec.Consistent)
	}
}

func TestCategoryFallbackAndSynonyms(t *testing.T) {
	store := appleStore()
	store.limits["Bifenthrin|엽채류"] = ref("Bifenthrin", "엽채류", "2")
	store.limits["Diazinon|들깻잎"] = ref("Diazinon", "들깻잎", "0.3")
	e := NewEngine(store, nil, rules.Default(), nil)

	out := e.Verify(context.Background(), Input{
		Rows: []entity.ResultRow{
			row("Bifenthrin", "0.5", "2", constants.Compliant),
			row("Diazinon", "0.5", "0.3", constants.NonCompliant),
		},
		SampleDescription: "깻잎",
		FallbackFoods:     []string{"", "엽채류", "엽채류"},
	})
	if len(out) != 2 {
		t.Fatalf("records = %d", len(out))
	}
	if out[0].LimitSource != constants.LimitFromCategory || out[0].ResolvedLimitDisplay != "2" || !out[0].Consistent {
		t.Errorf("category record = %+v", out[0])
	}
	if out[1].LimitSource != constants.LimitFromReference || out[1].ResolvedRegimeVerdict != constants.NonCompliant || !out[1].Consistent {
		t.Errorf("synonym record = %+v", out[1])
	}
	if out[0].Position != 0 || out[1].Position != 1 {
		t.Errorf("positions = %d,%d", out[0].Position, out[1].Position)
	}
}

func TestNameResolutionTiers(t *testing.T) {
	store := &fakeStore{names: []string{"Chloropyrifos", "Chlorpyrifos", "Chlorpyrifos-methyl", "Bifenthrin"}}
	e := NewEngine(store, nil, rules.Default(), nil)

	tests := []struct {
		name      string
		display   string
		lookup    string
		canonical string
		tier      constants.NameTier
		match     bool
	}{
		{"exact different case", "CHLORPYRIFOS", "CHLORPYRIFOS", "Chlorpyrifos", constants.NameExact, true},
		{"exact with stray value", "Bifenthrin 0.02", "Bifenthrin", "Bifenthrin", constants.NameExact, false},
		{"substring", "methyl", "methyl", "Chlorpyrifos-methyl", constants.NameSubstring, false},
		{"fuzzy prefers closer", "Chlorpirifos", "Chlorpirifos", "Chlorpyrifos", constants.NameFuzzy, false},
		{"below floor", "Xylenol", "Xylenol", "Xylenol", constants.NameVerbatim, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := row(tt.display, "0.01", "-", constants.NotApplicable)
			r.LookupName = tt.lookup
			rec := verifyOne(t, e, Input{Rows: []entity.ResultRow{r}, SampleDescription: "사과"})
			got := []any{rec.CanonicalName, rec.NameTier, rec.NameMatch}
			want := []any{tt.canonical, tt.tier, tt.match}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("resolution (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFuzzyFloorMonotonicity(t *testing.T) {
	s1 := Similarity("Chlorpirifos", "Chlorpyrifos")
	s2 := Similarity("Chlorpirifos", "Chloropyrifos")
	if !(s1 > s2 && s2 >= 0.6) {
		t.Fatalf("fixture scores s1=%v s2=%v", s1, s2)
	}
	for _, order := range [][]string{{"Chloropyrifos", "Chlorpyrifos"}, {"Chlorpyrifos", "Chloropyrifos"}} {
		got, _, ok := BestMatch("Chlorpirifos", order, 0.6)
		if !ok || got != "Chlorpyrifos" {
			t.Errorf("BestMatch(%v) = %q %t", order, got, ok)
		}
	}
	if _, score, ok := BestMatch("Xylenol", []string{"Chlorpyrifos", "Bifenthrin"}, 0.6); ok {
		t.Errorf("Xylenol matched with score %v", score)
	}
	// ties keep the first candidate
	if got, _, _ := BestMatch("abcd", []string{"abcx", "abcy"}, 0.6); got != "abcx" {
		t.Errorf("tie picked %q", got)
	}
	// the floor is exclusive
	if _, _, ok := BestMatch("abcd", []string{"abxy"}, 0.5); ok {
		t.Error("score equal to the floor was accepted")
	}
}

func TestStoreErrorsDegrade(t *testing.T) {
	e := NewEngine(&fakeStore{err: errors.New("connection reset")}, nil, rules.Default(), nil)
	rec := verifyOne(t, e, Input{
		Rows:              []entity.ResultRow{row("Chlorpyrifos", "0.005", "-", constants.Compliant)},
		SampleDescription: "사과",
	})
	if rec.NameTier != constants.NameVerbatim || rec.LimitSource != constants.LimitDefaultFloor {
		t.Errorf("tier=%s source=%s", rec.NameTier, rec.LimitSource)
	}
	if rec.ResolvedRegimeVerdict != constants.Compliant || rec.LimitAgreement != constants.AgreementMissing || rec.Consistent {
		t.Errorf("record = %+v", rec)
	}
}

func TestVerifyEmpty(t *testing.T) {
	e := NewEngine(&fakeStore{}, nil, rules.Default(), nil)
	if out := e.Verify(context.Background(), Input{}); len(out) != 0 {
		t.Fatalf("records = %d", len(out))
	}
}

func TestAgreement(t *testing.T) {
	tol := dec("0.001")
	tests := []struct {
		stated, resolved string
		want             constants.LimitAgreement
	}{
		{"0.05", "0.05", constants.AgreementExact},
		{"0.050", "0.05", constants.AgreementFormatOnly},
		{"0.05T", "0.05(T)", constants.AgreementFormatOnly},
		{"0.0505", "0.05", constants.AgreementFormatOnly},
		{"0.05", "0.05(T)", constants.AgreementMissingSymbol},
		{"0.05†", "0.05", constants.AgreementMissingSymbol},
		{"0.1", "0.05", constants.AgreementMismatch},
		{"0.05", "-", constants.AgreementMismatch},
		{"-", "0.05", constants.AgreementMissing},
		{"", "PLS 0.01", constants.AgreementMissing},
	}
	for _, tt := range tests {
		if got := agreement(tt.stated, tt.resolved, tol); got != tt.want {
			t.Errorf("agreement(%q, %q) = %s, want %s", tt.stated, tt.resolved, got, tt.want)
		}
	}
}

func TestFormatLimit(t *testing.T) {
	code := "T"
	tests := []struct {
		limit string
		code  *string
		want  string
	}{
		{"5", nil, "5"},
		{"5.000", nil, "5"},
		{"0.0500", nil, "0.05"},
		{"0.12345", nil, "0.123"},
		{"0.05", &code, "0.05(T)"},
	}
	for _, tt := range tests {
		if got := FormatLimit(dec(tt.limit), tt.code); got != tt.want {
			t.Errorf("FormatLimit(%s) = %q, want %q", tt.limit, got, tt.want)
		}
	}
}
