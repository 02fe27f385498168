package entity

import "github.com/shopspring/decimal"

// ReferenceLimit is a regulatory maximum residue limit for one substance in one food.
type ReferenceLimit struct {
	Substance            string          `json:"pesticide_name_en"`
	SubstanceKR          string          `json:"pesticide_name_kr,omitempty"`
	Food                 string          `json:"food_name"`
	Limit                decimal.Decimal `json:"max_residue_limit"`
	ConditionCode        *string         `json:"condition_code_symbol,omitempty"`
	ConditionDescription *string         `json:"condition_code_description,omitempty"`
}

// FoodCategory places a food in the regulatory classification.
type FoodCategory struct {
	Food         string  `json:"food_name"`
	MainCategory string  `json:"main_category"`
	SubCategory  *string `json:"sub_category,omitempty"`
}

// ConditionCode describes a limit footnote symbol.
type ConditionCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
