package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

const (
	purposeMarkers = `검정\s*목적|Analytical\s*Purpose|GAP\s*인증용|친환경\s*인증용`
	sampleMarkers  = `검정품목|Sample\s*Description`
	nameLabelExact = `성명\(법인의 경우에는 명칭\)`
	nameLabelLoose = `성명\(법인의\s*경우에는\s*명칭\)`
	nameLabelSpace = `성명\s*\(법인의\s*경우에는\s*명칭\)`
)

// applicantSection isolates the applicant block; the whole text is used when nothing matches.
var applicantSection = patterns(firstGroup,
	"name_to_purpose", `(?is)(`+nameLabelLoose+`.*?)(?:`+purposeMarkers+`)`,
	"name_to_sample", `(?is)(`+nameLabelExact+`.*?)(?:`+sampleMarkers+`)`,
	"name_applicant_to_purpose", `(?is)(`+nameLabelLoose+`.*?신청인\s*\(Applicant\).*?)(?:`+purposeMarkers+`)`,
	"name_applicant_to_sample", `(?is)(`+nameLabelExact+`.*?신청인\s*\(Applicant\).*?)(?:`+sampleMarkers+`)`,
	"applicant_to_purpose", `(?is)신청인\s*\(Applicant\)(.*?)(?:`+purposeMarkers+`)`,
	"applicant_to_sample", `(?is)신청인\s*\(Applicant\)(.*?)(?:`+sampleMarkers+`|[가-힣]{2,}$)`,
	"applicant_to_tel", `(?is)신청인.*?\(Applicant\)(.*?)(?:\(Tel\.\))`,
	"applicant_to_end", `(?is)신청인.*?\(Applicant\)(.*?)(?:검정목적|검정품목|[가-힣]{2,}\s*$)`,
)

var (
	reNameTrailRegNo = regexp.MustCompile(`법인등록번호.*$`)
	reNameTrailLabel = regexp.MustCompile(`\(Name/Organization\).*$`)
	reSpaces         = regexp.MustCompile(`\s+`)
	reDigitsDashes   = regexp.MustCompile(`^[0-9-]+$`)

	reAddressTrailPhone = regexp.MustCompile(`\s*전화번호.*$`)
	reAddressTrailTel   = regexp.MustCompile(`(?i)\s*Tel\.?.*$`)
)

func cleanName(m []string) (string, bool) {
	v, ok := firstGroup(m)
	if !ok {
		return "", false
	}
	v = reNameTrailRegNo.ReplaceAllString(v, "")
	v = reNameTrailLabel.ReplaceAllString(v, "")
	v = strings.TrimSpace(reSpaces.ReplaceAllString(v, " "))
	if v == "" || reDigitsDashes.MatchString(v) {
		return "", false
	}
	return v, true
}

var applicantName = patterns(cleanName,
	"label_exact_regno", nameLabelExact+`:\s*(.+?)(?:\s+법인등록번호)`,
	"label_loose_regno", nameLabelLoose+`:\s*(.+?)(?:\s+법인등록번호)`,
	"label_space_regno", nameLabelSpace+`:\s*(.+?)(?:\s+법인등록번호)`,
	"label_exact_class", nameLabelExact+`\s*[:：]?\s*([^법인등록번호\n\r]+)(?:\s*법인등록번호|$)`,
	"label_loose_class", nameLabelLoose+`\s*[:：]?\s*([^법인등록번호\n\r]+)(?:\s*법인등록번호|$)`,
	"label_space_class", nameLabelSpace+`\s*[:：]?\s*([^법인등록번호\n\r]+)(?:\s*법인등록번호|$)`,
	"label_exact_line", nameLabelExact+`\s*[:：]?\s*([^\n\r]+)`,
	"label_loose_line", nameLabelLoose+`\s*[:：]?\s*([^\n\r]+)`,
	"label_space_line", nameLabelSpace+`\s*[:：]?\s*([^\n\r]+)`,
	"english_label", `\(Name/Organization\)\s*\n?\s*([^\n\r법인등록번호]+)`,
	"corp_mark", `[\(（]주[\)）]\s*([^\n\r\t]+)`,
	"corp_glyph", `㈜\s*([^\n\r\t]+)`,
)

func minLen(n int) func([]string) (string, bool) {
	return func(m []string) (string, bool) {
		v, ok := firstGroup(m)
		if !ok || utf8.RuneCountInString(v) < n {
			return "", false
		}
		return v, true
	}
}

var applicantID = patterns(minLen(3),
	"corporate_regno", `법인등록번호\s*[:：]?\s*([0-9-]+)`,
	"id_number", `I\.D\s*number\s*[:：]?\s*([0-9-]+)`,
	"regno", `등록번호\s*[:：]?\s*([0-9-]+)`,
	"corporate_regno_loose", `법인등록번호[^0-9\n\r]{0,20}([0-9][0-9-]+)`,
)

func cleanAddress(m []string) (string, bool) {
	v, ok := firstGroup(m)
	if !ok {
		return "", false
	}
	v = reAddressTrailPhone.ReplaceAllString(v, "")
	v = strings.TrimSpace(reAddressTrailTel.ReplaceAllString(v, ""))
	if utf8.RuneCountInString(v) <= 5 {
		return "", false
	}
	return v, true
}

var applicantAddress = patterns(cleanAddress,
	"address_label_to_phone", `주소\s*\(Address\)\s*[:：]?\s*([^전화번호\n\r]+?)(?:\s*전화번호|$)`,
	"address_to_phone", `주소\s*[:：]?\s*([^전화번호\n\r]+?)(?:\s*전화번호|$)`,
	"address_label_line", `주소\s*\(Address\)\s*[:：]?\s*([^\n\r]+)`,
	"address_line", `주소\s*[:：]?\s*([^\n\r]+)`,
	"english_line", `Address\s*[:：]?\s*([^\n\r]+)`,
)

var reHasDigit = regexp.MustCompile(`\d`)

func phoneNumber(m []string) (string, bool) {
	v, ok := firstGroup(m)
	if !ok || !reHasDigit.MatchString(v) {
		return "", false
	}
	return v, true
}

var applicantPhone = patterns(phoneNumber,
	"address_then_phone", `(?s)주소.*?전화번호\s*[:：]?\s*([0-9-]+)`,
	"english_address_then_phone", `(?s)Address.*?전화번호\s*[:：]?\s*([0-9-]+)`,
	"phone", `전화번호\s*[:：]?\s*([0-9-]+)`,
	"tel", `Tel\.?\s*[:：]?\s*([0-9-]+)`,
	"tel_upper", `TEL\.?\s*[:：]?\s*([0-9-]+)`,
	"tel_paren", `\(Tel\.?\)\s*[:：]?\s*([0-9-]+)`,
)

// Applicant extracts the applicant block. Fields that cannot be found hold a sentinel.
func Applicant(text string) entity.Applicant {
	section, _, ok := applicantSection.First(text)
	if !ok {
		section = text
	}
	return entity.Applicant{
		Name:     valueOr(applicantName, section, constants.Unknown),
		IDNumber: valueOr(applicantID, section, constants.Unknown),
		Address:  valueOr(applicantAddress, section, constants.NotProvided),
		Phone:    valueOr(applicantPhone, section, constants.NotProvided),
	}
}

func valueOr(c Cascade, text, def string) string {
	if v, _, ok := c.First(text); ok {
		return v
	}
	return def
}
