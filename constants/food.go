package constants

import "strings"

// DefaultFoodSynonyms maps sample descriptions as labs write them onto the food names used by
// the reference tables.
var DefaultFoodSynonyms = map[string]string{
	"깻잎": "들깻잎",
}

// CanonicalFood applies a synonym table to a sample description.
func CanonicalFood(synonyms map[string]string, food string) string {
	food = strings.TrimSpace(food)
	if food == "" {
		return food
	}
	if mapped, ok := synonyms[food]; ok {
		return mapped
	}
	return food
}

// Applicant field sentinels.
const (
	Unknown     = "미상"
	NotProvided = "미제공"
)
