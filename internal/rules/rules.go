// Package rules holds the domain tables and thresholds that drive validation, extraction flags
// and reconciliation. A Rules value is built once and passed by value into constructors.
package rules

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
)

// Element is one required structural marker of a certificate.
type Element struct {
	Tag     string `mapstructure:"tag" validate:"required"`
	Pattern string `mapstructure:"pattern" validate:"required"`
}

type Rules struct {
	Elements            []Element         `validate:"min=1,dive"`
	StructuralThreshold int               `validate:"min=1"`
	Issuers             []string          `validate:"min=1,dive,required"`
	FoodSynonyms        map[string]string `validate:"-"`

	EcoTrigger   string `validate:"required"`
	PlantTrigger string `validate:"required"`

	// SimilarityFloor is exclusive: a fuzzy candidate must score strictly above it.
	SimilarityFloor float64 `validate:"gte=0,lte=1"`
	// FoodSuggestionFloor is inclusive and only used for similar-food suggestions.
	FoodSuggestionFloor float64 `validate:"gte=0,lte=1"`

	DefaultFloor   decimal.Decimal `validate:"-"`
	EcoThreshold   decimal.Decimal `validate:"-"`
	LimitTolerance decimal.Decimal `validate:"-"`

	MinTextLength int `validate:"min=0"`
}

// DefaultElements is the bilingual checklist printed on every standard certificate.
var DefaultElements = []Element{
	{Tag: "certificate_number", Pattern: `제\s+\d{4}-\d{5}\s+호`},
	{Tag: "certificate_title", Pattern: `검\s*정\s*증\s*명\s*서|Certificate\s+of\s+Analysis`},
	{Tag: "applicant_section", Pattern: `신청인|Applicant`},
	{Tag: "test_section", Pattern: `검정결과|Analytical\s+Results|결과\s*\(Results\)`},
	{Tag: "analytical_purpose", Pattern: `검정\s*목적|Analytical\s+Purpose`},
	{Tag: "sample_description", Pattern: `검정\s*품목|Sample\s+Description`},
	{Tag: "analyzed_items", Pattern: `검정\s*항목|Analyzed\s+Items`},
	{Tag: "test_period", Pattern: `검정\s*기간|Date\s+of\s+Test`},
	{Tag: "analytical_method", Pattern: `검정\s*방법|Analytical\s+Method`},
}

// DefaultIssuers lists authorized issuer name variants, checked in order.
var DefaultIssuers = []string{
	"TSP분석연구소",
	"TSP인증관리원",
	"티에스피분석연구소",
	"티에스피인증관리원",
	"(주) 티에스피분석연구소",
	"㈜ 티에스피분석연구소",
	"TSP",
	"농산물품질관리원",
	"국립농산물품질관리원",
}

// Default returns the built-in rule set.
func Default() Rules {
	return Rules{
		Elements:            slices.Clone(DefaultElements),
		StructuralThreshold: 6,
		Issuers:             slices.Clone(DefaultIssuers),
		FoodSynonyms:        maps.Clone(constants.DefaultFoodSynonyms),
		EcoTrigger:          "친환경",
		PlantTrigger:        "작물체",
		SimilarityFloor:     0.6,
		FoodSuggestionFloor: 0.5,
		DefaultFloor:        decimal.RequireFromString("0.01"),
		EcoThreshold:        decimal.RequireFromString("0.01"),
		LimitTolerance:      decimal.RequireFromString("0.001"),
		MinTextLength:       50,
	}
}

// MapFood applies the synonym table.
func (r Rules) MapFood(food string) string {
	return constants.CanonicalFood(r.FoodSynonyms, food)
}
