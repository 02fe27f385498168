package ocr

import "regexp"

var (
	reCertNumber  = regexp.MustCompile(`\d{4}-\d{5}`)
	reDottedDate  = regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}`)
	reDecimal     = regexp.MustCompile(`\b\d+\.\d+\b`)
	reResultLabel = regexp.MustCompile(`검출량|잔류허용기준|MRL|Results`)
)

// heuristicConfidence scores how much the text looks like a readable certificate.
// Informational only; nothing gates on it.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2) // base
	if reCertNumber.MatchString(txt) {
		score += 0.2
	}
	if reResultLabel.MatchString(txt) {
		score += 0.2
	}
	if reDottedDate.MatchString(txt) {
		score += 0.15
	}
	if len(reDecimal.FindAllStringIndex(txt, 3)) >= 3 {
		score += 0.15
	}
	if len(txt) > 500 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
