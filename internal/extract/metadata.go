package extract

import (
	"regexp"
	"strings"
)

// Metadata is the test-metadata block of a certificate. Nil means not found.
type Metadata struct {
	Purpose           *string
	SampleDescription *string
	ProducerInfo      *string
	AnalyzedItems     *string
	SampleQuantity    *string
	TestPeriod        *string
	Method            *string
	TestStart         *string
	TestEnd           *string
}

var (
	reLabelParen = regexp.MustCompile(`\([A-Za-z\s]+\)`)
	reNA         = regexp.MustCompile(`\s*#N/A\s*`)
)

func cleanMetadata(m []string) (string, bool) {
	v, ok := firstGroup(m)
	if !ok {
		return "", false
	}
	v = reLabelParen.ReplaceAllString(v, "")
	v = reNA.ReplaceAllString(v, "")
	v = strings.TrimLeft(strings.TrimSpace(v), ":： ")
	v = strings.TrimSpace(v)
	return v, v != ""
}

func metadataField(name, korean, english string) Cascade {
	return patterns(cleanMetadata, name,
		`(?i)`+korean+`[^가-힣\s]*\s*[:：]?\s*([^\n\r]+)|`+english+`[^A-Za-z\s]*\s*[:：]?\s*([^\n\r]+)`)
}

var (
	purposeField  = metadataField("purpose", `검정\s*목적`, `Analytical\s+Purpose`)
	sampleField   = metadataField("sample_description", `검정\s*품목`, `Sample\s+Description`)
	itemsField    = metadataField("analyzed_items", `검정\s*항목`, `Analyzed\s+Items`)
	quantityField = metadataField("sample_quantity", `시료\s+점수\s+및\s+중량`, `Quantity\s+of\s+Samples`)
	periodField   = metadataField("test_period", `검정\s*기간`, `Date\s+of\s+Test`)
	methodField   = metadataField("method", `검정\s*방법`, `Analytical\s+Method\s+used`)
	producerField = patterns(cleanMetadata, "producer_info", `성명/수거지\s*[:：]?\s*([^\n\r]+)`)
)

var periodRange = Cascade{
	{Name: "trailing_dot", Pattern: regexp.MustCompile(`(\d{4}\.\d{2}\.\d{2}\.?)\s*~\s*(\d{4}\.\d{2}\.\d{2}\.?)`), Extract: joinRange},
	{Name: "compact", Pattern: regexp.MustCompile(`(\d{4}\.\d{2}\.\d{2})~(\d{4}\.\d{2}\.\d{2})`), Extract: joinRange},
}

// joinRange packs both dates into one value; TestDates splits them again.
func joinRange(m []string) (string, bool) {
	return isoDate(m[1]) + "|" + isoDate(m[2]), true
}

func isoDate(dotted string) string {
	return strings.TrimRight(strings.ReplaceAll(dotted, ".", "-"), "-")
}

// ExtractMetadata runs each field independently against the full text.
func ExtractMetadata(text string) Metadata {
	md := Metadata{
		Purpose:           optional(purposeField, text),
		SampleDescription: optional(sampleField, text),
		ProducerInfo:      optional(producerField, text),
		AnalyzedItems:     optional(itemsField, text),
		SampleQuantity:    optional(quantityField, text),
		TestPeriod:        optional(periodField, text),
		Method:            optional(methodField, text),
	}
	if md.TestPeriod != nil {
		md.TestStart, md.TestEnd = TestDates(*md.TestPeriod)
	}
	return md
}

// TestDates splits a dotted date range into ISO start and end dates.
func TestDates(period string) (start, end *string) {
	v, _, ok := periodRange.First(period)
	if !ok {
		return nil, nil
	}
	s, e, _ := strings.Cut(v, "|")
	return &s, &e
}

func optional(c Cascade, text string) *string {
	v, _, ok := c.First(text)
	if !ok {
		return nil
	}
	return &v
}
