package extract

import "regexp"

var identifierCascade = Cascade{
	{Name: "certificate_number", Pattern: regexp.MustCompile(`제\s+(\d{4}-\d{5})\s+호`)},
}

// Identifier returns the NNNN-NNNNN certificate number, or nil when absent.
func Identifier(text string) *string {
	v, _, ok := identifierCascade.First(text)
	if !ok {
		return nil
	}
	return &v
}
