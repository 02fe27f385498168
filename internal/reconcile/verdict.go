package reconcile

import (
	"regexp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
)

var (
	reSymbols = regexp.MustCompile(`[†T*]`)
	reNumber  = regexp.MustCompile(`\d+\.?\d*`)
)

// compare is the ordinary-regime verdict: detection at or below the limit is compliant.
func compare(detection decimal.Decimal, limit *decimal.Decimal) constants.Opinion {
	if limit == nil {
		return constants.Indeterminate
	}
	return constants.FromBool(detection.LessThanOrEqual(*limit))
}

// agreement classifies the stated limit text against the resolved display.
func agreement(stated, resolved string, tolerance decimal.Decimal) constants.LimitAgreement {
	stated, resolved = strings.TrimSpace(stated), strings.TrimSpace(resolved)
	if stated != "" && stated == resolved {
		return constants.AgreementExact
	}
	sNum, sOK := firstNumber(stated)
	if !sOK {
		return constants.AgreementMissing
	}
	rNum, rOK := firstNumber(resolved)
	if !rOK || sNum.Sub(rNum).Abs().GreaterThan(tolerance) {
		return constants.AgreementMismatch
	}
	if slices.Equal(symbols(stated), symbols(resolved)) {
		return constants.AgreementFormatOnly
	}
	return constants.AgreementMissingSymbol
}

func firstNumber(s string) (decimal.Decimal, bool) {
	m := reNumber.FindString(s)
	if m == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(m)
	return d, err == nil
}

// symbols returns the sorted distinct condition symbols in s.
func symbols(s string) []string {
	found := reSymbols.FindAllString(s, -1)
	slices.Sort(found)
	return slices.Compact(found)
}
