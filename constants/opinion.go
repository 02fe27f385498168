package constants

import "strings"

// Opinion is a compliance conclusion as printed on a certificate or recomputed by the engine.
type Opinion string

const (
	Compliant     Opinion = "적합"
	NonCompliant  Opinion = "부적합"
	NotApplicable Opinion = "-"
	Indeterminate Opinion = "확인불가"
)

// ParseOpinion maps free text from a result row onto an Opinion.
// "부적합" is checked before "적합" because the latter is a substring of the former.
func ParseOpinion(s string) Opinion {
	switch {
	case strings.Contains(s, string(NonCompliant)):
		return NonCompliant
	case strings.Contains(s, string(Compliant)):
		return Compliant
	default:
		return NotApplicable
	}
}

// FromBool renders a pass/fail comparison.
func FromBool(ok bool) Opinion {
	if ok {
		return Compliant
	}
	return NonCompliant
}
