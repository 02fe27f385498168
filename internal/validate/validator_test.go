package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
)

// one marker per default element, in element order
var markers = []string{
	"제 2024-00001 호",
	"검정증명서",
	"신청인",
	"검정결과",
	"검정목적",
	"검정품목",
	"검정항목",
	"검정기간",
	"검정방법",
}

const issuerLine = "주식회사 TSP분석연구소 대표이사"

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New(rules.Default(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func textWith(k int, issuer bool) string {
	lines := append([]string{}, markers[:k]...)
	lines = append(lines, strings.Repeat("filler text for the certificate body ", 3))
	if issuer {
		lines = append(lines, issuerLine)
	}
	return strings.Join(lines, "\n")
}

func TestStructuralThreshold(t *testing.T) {
	v := newValidator(t)
	for k := 0; k <= len(markers); k++ {
		verdict := v.Validate(textWith(k, true))
		if got, want := verdict.Passed, k >= 6; got != want {
			t.Errorf("k=%d: passed = %t, want %t (found %v)", k, got, want, verdict.FoundElements)
		}
		if len(verdict.FoundElements) != k {
			t.Errorf("k=%d: found %d elements: %v", k, len(verdict.FoundElements), verdict.FoundElements)
		}
	}
}

func TestIssuerRequired(t *testing.T) {
	v := newValidator(t)
	verdict, err := v.Check(textWith(9, false))
	if verdict.Passed || verdict.IssuerOK {
		t.Fatalf("verdict passed without an issuer: %+v", verdict)
	}
	var fe *FailedError
	if !errors.As(err, &fe) || !errors.Is(err, common.ErrValidationFailed) {
		t.Fatalf("error = %v, want *FailedError", err)
	}
	want := []string{"발급기관 검증 실패: 승인되지 않은 발급기관이거나 발급기관 정보를 찾을 수 없습니다"}
	if diff := cmp.Diff(want, fe.Verdict.Feedback.Details); diff != "" {
		t.Errorf("details (-want +got):\n%s", diff)
	}
	if len(fe.Verdict.Feedback.Guidance) != 2 {
		t.Errorf("guidance = %v", fe.Verdict.Feedback.Guidance)
	}
}

func TestFeedbackOnPass(t *testing.T) {
	v := newValidator(t)
	verdict, err := v.Check(textWith(7, true))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if verdict.IssuerMatch != "TSP분석연구소" {
		t.Errorf("issuer match = %q", verdict.IssuerMatch)
	}
	fb := verdict.Feedback
	if !fb.Valid || fb.ErrorType != "" || fb.Message != "유효한 검정증명서입니다." {
		t.Errorf("feedback = %+v", fb)
	}
	if len(fb.Details) != 2 || fb.Details[1] != "공인 발급기관 확인: TSP분석연구소" {
		t.Errorf("details = %v", fb.Details)
	}
}

func TestFeedbackOnStructureAndShortText(t *testing.T) {
	v := newValidator(t)
	verdict := v.Validate("신청인 TSP")
	if verdict.Passed {
		t.Fatal("short text passed")
	}
	fb := verdict.Feedback
	if fb.ErrorType != ErrorTypeInvalidFormat {
		t.Errorf("error type = %q", fb.ErrorType)
	}
	if len(fb.Details) != 2 {
		t.Fatalf("details = %v", fb.Details)
	}
	if !strings.HasPrefix(fb.Details[0], "구조 검증 실패: 검정증명서 필수 구조 요소 부족 (1/9개 발견). 누락: certificate_number, certificate_title") {
		t.Errorf("structure detail = %q", fb.Details[0])
	}
	if fb.Details[1] != "추출된 텍스트가 너무 짧음 (스캔 품질 문제 가능성)" {
		t.Errorf("short text detail = %q", fb.Details[1])
	}
	if len(fb.Guidance) != 5 {
		t.Errorf("guidance = %v", fb.Guidance)
	}
}

func TestCaseInsensitiveElements(t *testing.T) {
	v := newValidator(t)
	verdict := v.Validate("CERTIFICATE OF ANALYSIS\nanalytical purpose\nsample description")
	want := []string{"certificate_title", "analytical_purpose", "sample_description"}
	if diff := cmp.Diff(want, verdict.FoundElements); diff != "" {
		t.Errorf("found (-want +got):\n%s", diff)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	r := rules.Default()
	r.Elements = append(r.Elements, rules.Element{Tag: "broken", Pattern: `(`})
	if _, err := New(r, nil); err == nil {
		t.Fatal("expected compile error")
	}
}
