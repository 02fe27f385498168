package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/extract"
	"github.com/joseph-ayodele/coa-verifier/internal/ocr"
	"github.com/joseph-ayodele/coa-verifier/internal/pipeline"
	"github.com/joseph-ayodele/coa-verifier/internal/reconcile"
	"github.com/joseph-ayodele/coa-verifier/internal/refstore"
	"github.com/joseph-ayodele/coa-verifier/internal/repository"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
	"github.com/joseph-ayodele/coa-verifier/internal/validate"
)

const certificateTemplate = `제 %s 호
검정증명서
신청인 (Applicant)
성명(법인의 경우에는 명칭): 한빛농산 법인등록번호: 110111-2345678
검정목적 (Analytical Purpose): 수출용
검정품목 (Sample Description): %s
검정항목 (Analyzed Items): 잔류농약 320종
검정기간 (Date of Test): 2024.03.01. ~ 2024.03.05.
검정방법 (Analytical Method used): 식품공전 다종농약다성분 분석법
검정결과 (Analytical Results)
농약성분명 결과 검출량 (mg/kg) 잔류허용기준 (mg/kg) 검토의견
Chlorpyrifos 0.05 0.05 - 적합
Diazinon 0.3 0.1 - 부적합
※ 본 검정결과는 의뢰한 시료에 한합니다.
TSP분석연구소`

func certificate(number, sample string) string {
	return fmt.Sprintf(certificateTemplate, number, sample)
}

func txtDocument(name, text string) entity.Document {
	return entity.Document{Filename: name, Ext: "txt", Content: []byte(text)}
}

func strPtr(s string) *string { return &s }

type fixture struct {
	svc   *Service
	certs repository.CertificateRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.Default()

	db, err := repository.OpenSQLite(ctx, ":memory:", logger)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close(logger) })
	if err := refstore.EnsureSchema(ctx, db.Driver); err != nil {
		t.Fatalf("refstore schema: %v", err)
	}
	if err := repository.Migrate(ctx, db.Driver); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	limits := []entity.ReferenceLimit{
		{Substance: "Chlorpyrifos", Food: "들깻잎", Limit: decimal.RequireFromString("0.05")},
		{Substance: "Diazinon", Food: "들깻잎", Limit: decimal.RequireFromString("0.1")},
		{Substance: "Chlorpyrifos", Food: "사과", Limit: decimal.RequireFromString("0.5")},
		{Substance: "Chlorpyrifos", Food: "엽채류", Limit: decimal.RequireFromString("0.05")},
	}
	categories := []entity.FoodCategory{{Food: "상추", MainCategory: "채소류", SubCategory: strPtr("엽채류")}}
	if err := refstore.Seed(ctx, db.Driver, limits, categories, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	r := rules.Default()
	v, err := validate.New(r, nil)
	if err != nil {
		t.Fatalf("validate.New: %v", err)
	}
	store := refstore.NewSQLStore(db.Driver, nil)
	proc := pipeline.NewProcessor(nil,
		ocr.NewExtractor(ocr.Config{}, nil),
		v,
		extract.NewParser(r, nil),
		reconcile.NewEngine(store, nil, r, nil),
		nil,
	)
	certs := repository.NewCertificateRepository(db.Driver, nil)
	return fixture{svc: NewService(proc, store, certs, r, nil), certs: certs}
}

func TestSubmitDuplicateAndOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := txtDocument("a.txt", certificate("2024-00123", "깻잎"))

	first, err := f.svc.Submit(ctx, Submission{Document: doc})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Status != constants.OutcomeVerified {
		t.Fatalf("status = %s, want VERIFIED", first.Status)
	}
	if len(first.Result.Verifications) != 2 {
		t.Fatalf("verifications = %d, want 2", len(first.Result.Verifications))
	}
	for _, rec := range first.Result.Verifications {
		if rec.LimitSource != constants.LimitFromReference || !rec.Consistent {
			t.Errorf("%s: source=%s consistent=%t", rec.Name, rec.LimitSource, rec.Consistent)
		}
	}

	dup, err := f.svc.Submit(ctx, Submission{Document: doc})
	if err != nil {
		t.Fatalf("Submit duplicate: %v", err)
	}
	if dup.Status != constants.OutcomeDuplicate || !errors.Is(dup.Err(), common.ErrDuplicate) {
		t.Fatalf("status = %s, want DUPLICATE", dup.Status)
	}
	if dup.Result.Certificate.ID != first.Result.Certificate.ID || len(dup.Result.Verifications) != 2 {
		t.Errorf("duplicate did not return the stored certificate: %+v", dup.Result.Certificate)
	}

	over, err := f.svc.Submit(ctx, Submission{Document: doc, Overwrite: true})
	if err != nil {
		t.Fatalf("Submit overwrite: %v", err)
	}
	if over.Status != constants.OutcomeReplaced {
		t.Fatalf("status = %s, want REPLACED", over.Status)
	}
	n, err := f.certs.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Count = %d, %v; want 1", n, err)
	}
}

func TestSubmitUnknownFood(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := txtDocument("b.txt", certificate("2024-00200", "청사과"))

	out, err := f.svc.Submit(ctx, Submission{Document: doc})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != constants.OutcomeFoodSelection || !errors.Is(out.Err(), common.ErrFoodSelectionRequired) {
		t.Fatalf("status = %s, want FOOD_SELECTION_REQUIRED", out.Status)
	}
	if out.ParsedFood != "청사과" {
		t.Errorf("ParsedFood = %q", out.ParsedFood)
	}
	if diff := cmp.Diff([]string{"사과"}, out.SimilarFoods); diff != "" {
		t.Errorf("SimilarFoods (-want +got):\n%s", diff)
	}
	if n, _ := f.certs.Count(ctx); n != 0 {
		t.Errorf("food selection stored a certificate")
	}

	// Choosing a food resolves limits against it.
	out, err = f.svc.Submit(ctx, Submission{Document: doc, SelectedFood: "사과"})
	if err != nil {
		t.Fatalf("Submit with selection: %v", err)
	}
	if out.Status != constants.OutcomeVerified || out.Result.Certificate.Sample() != "사과" {
		t.Fatalf("status = %s sample = %q", out.Status, out.Result.Certificate.Sample())
	}
	if got := out.Result.Verifications[0].ResolvedLimitDisplay; got != "0.5" {
		t.Errorf("Chlorpyrifos limit = %q, want 0.5", got)
	}
}

func TestSubmitSkipFoodValidation(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.Submit(context.Background(), Submission{
		Document:           txtDocument("c.txt", certificate("2024-00300", "청사과")),
		SkipFoodValidation: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != constants.OutcomeVerified {
		t.Fatalf("status = %s, want VERIFIED", out.Status)
	}
	for _, rec := range out.Result.Verifications {
		if rec.LimitSource != constants.LimitFromStated {
			t.Errorf("%s: source = %s, want STATED", rec.Name, rec.LimitSource)
		}
	}
}

func TestSubmitCategorySubstitution(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.Submit(context.Background(), Submission{Document: txtDocument("d.txt", certificate("2024-00400", "상추"))})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != constants.OutcomeVerified {
		t.Fatalf("status = %s, want VERIFIED", out.Status)
	}
	want := &entity.CategorySubstitution{OriginalFood: "상추", MainCategory: "채소류", SubCategory: strPtr("엽채류"), UsedCategoryLookup: true}
	if diff := cmp.Diff(want, out.Substitution); diff != "" {
		t.Errorf("Substitution (-want +got):\n%s", diff)
	}
	if got := out.Result.Verifications[0].LimitSource; got != constants.LimitFromCategory {
		t.Errorf("Chlorpyrifos source = %s, want CATEGORY", got)
	}
}

func TestSubmitRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, Submission{Document: entity.Document{Filename: "x.docx", Ext: "docx"}})
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("docx err = %v, want ErrValidation", err)
	}

	out, err := f.svc.Submit(ctx, Submission{Document: txtDocument("x.txt", "이 문서는 검정증명서가 아닌 일반 안내문입니다. 내용이 충분히 길지만 필요한 구조가 전혀 없습니다. 참고용으로만 사용하세요.")})
	if !errors.Is(err, common.ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
	if out.Status != constants.OutcomeInvalid || out.Result.Verdict.Feedback.Valid {
		t.Errorf("status = %s, feedback = %+v", out.Status, out.Result.Verdict.Feedback)
	}

	out, err = f.svc.Submit(ctx, Submission{Document: txtDocument("e.txt", "짧음")})
	if !errors.Is(err, common.ErrEmptyDocument) || out.Status != constants.OutcomeEmpty {
		t.Fatalf("status = %s, err = %v; want EMPTY_DOCUMENT", out.Status, err)
	}
}

func TestSimilarFoods(t *testing.T) {
	candidates := []string{"사과", "사과즙", "배", "들깻잎", "청사과", "풋사과"}
	got := SimilarFoods("청사과", candidates, 0.5, 10)
	// 사과 and 풋사과 both score 2/3 and tie-break by name; 사과즙 scores 1/3.
	want := []string{"사과", "풋사과"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SimilarFoods (-want +got):\n%s", diff)
	}
	if got := SimilarFoods("청사과", candidates, 0.5, 1); len(got) != 1 {
		t.Errorf("limit ignored: %v", got)
	}
	if got := SimilarFoods("", candidates, 0.5, 10); got != nil {
		t.Errorf("empty query = %v", got)
	}
}

func TestBatch(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	write := func(rel, text string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.txt", certificate("2024-00001", "깻잎"))
	write("b.txt", certificate("2024-00002", "청사과"))
	write("c.txt", "이 문서는 검정증명서가 아닌 일반 안내문입니다. 내용이 충분히 길지만 필요한 구조가 전혀 없습니다. 참고용으로만 사용하세요.")
	write("sub/d.txt", certificate("2024-00003", "사과"))
	write(".hidden.txt", certificate("2024-00004", "사과"))
	write("notes.docx", "ignored")

	results, stats, err := f.svc.Batch(context.Background(), root, BatchOptions{Concurrency: 2, SkipHidden: true})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	wantStats := DirStats{Matched: 4, Succeeded: 2, NeedsFood: 1, Failed: 1}
	stats.Scanned = 0
	if diff := cmp.Diff(wantStats, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
	got := map[string]constants.Outcome{}
	for _, r := range results {
		rel, _ := filepath.Rel(root, r.Path)
		got[rel] = r.Status
	}
	want := map[string]constants.Outcome{
		"a.txt":                       constants.OutcomeVerified,
		"b.txt":                       constants.OutcomeFoodSelection,
		"c.txt":                       constants.OutcomeInvalid,
		filepath.Join("sub", "d.txt"): constants.OutcomeVerified,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}
}

func TestBatchRequiresRoot(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.svc.Batch(context.Background(), " ", BatchOptions{}); err == nil {
		t.Fatal("expected error for empty root")
	}
}
