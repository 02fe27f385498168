package validate

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

const ErrorTypeInvalidFormat = "INVALID_CERTIFICATE_FORMAT"

const (
	msgValid   = "유효한 검정증명서입니다."
	msgInvalid = "업로드한 파일이 표준 검정증명서 형식이 아닙니다."
)

var (
	structureGuidance = []string{
		"✓ 완전한 검정증명서 PDF 파일인지 확인하세요",
		"✓ 스캔된 이미지가 아닌 원본 PDF 파일을 사용하세요",
		"✓ 파일이 손상되지 않았는지 확인하세요",
	}
	issuerGuidance = []string{
		"✓ TSP분석연구소 등 공인 검정기관 발급 증명서인지 확인하세요",
		"✓ 농산물품질관리원 승인 기관의 검정증명서만 업로드 가능합니다",
	}
	shortTextGuidance = []string{
		"✓ PDF 스캔 품질을 확인하세요",
		"✓ 텍스트가 선명하게 읽힐 수 있는 해상도인지 확인하세요",
	}
)

func (v *Validator) feedback(verdict entity.ValidationVerdict, structureOK bool, chars int) entity.Feedback {
	total := len(verdict.FoundElements) + len(verdict.MissingElements)
	if verdict.Passed {
		return entity.Feedback{
			Valid:   true,
			Message: msgValid,
			Details: []string{
				fmt.Sprintf("유효한 검정증명서 구조 (%d/%d개 발견)", len(verdict.FoundElements), total),
				"공인 발급기관 확인: " + verdict.IssuerMatch,
			},
		}
	}

	fb := entity.Feedback{
		ErrorType: ErrorTypeInvalidFormat,
		Message:   msgInvalid,
		Details:   []string{},
		Guidance:  []string{},
	}
	if !structureOK {
		fb.Details = append(fb.Details, fmt.Sprintf(
			"구조 검증 실패: 검정증명서 필수 구조 요소 부족 (%d/%d개 발견). 누락: %s",
			len(verdict.FoundElements), total, strings.Join(verdict.MissingElements, ", ")))
		fb.Guidance = append(fb.Guidance, structureGuidance...)
	}
	if !verdict.IssuerOK {
		fb.Details = append(fb.Details, "발급기관 검증 실패: 승인되지 않은 발급기관이거나 발급기관 정보를 찾을 수 없습니다")
		fb.Guidance = append(fb.Guidance, issuerGuidance...)
	}
	if chars < v.minText {
		fb.Details = append(fb.Details, "추출된 텍스트가 너무 짧음 (스캔 품질 문제 가능성)")
		fb.Guidance = append(fb.Guidance, shortTextGuidance...)
	}
	return fb
}
