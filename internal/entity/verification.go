package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
)

// VerificationRecord is the reconciliation result for one ResultRow.
type VerificationRecord struct {
	ID            uuid.UUID `json:"id"`
	CertificateID uuid.UUID `json:"certificate_id"`
	Position      int       `json:"position"`

	Name          string             `json:"pesticide_name"`
	CanonicalName string             `json:"standard_pesticide_name"`
	NameMatch     bool               `json:"pesticide_name_match"`
	NameTier      constants.NameTier `json:"name_tier"`

	Detection decimal.Decimal `json:"detection_value"`

	StatedLimit     *decimal.Decimal `json:"pdf_korea_mrl"`
	StatedLimitText string           `json:"pdf_korea_mrl_text"`

	ResolvedLimit        *decimal.Decimal      `json:"db_korea_mrl"`
	ResolvedLimitDisplay string                `json:"db_korea_mrl_display"`
	LimitSource          constants.LimitSource `json:"limit_source"`

	ExportCountry *string `json:"export_country"`
	ExportLimit   *string `json:"export_mrl"`

	StatedOpinion         constants.Opinion `json:"pdf_result"`
	StatedRegimeVerdict   constants.Opinion `json:"pdf_calculated_result"`
	ResolvedRegimeVerdict constants.Opinion `json:"db_calculated_result"`

	LimitAgreement  constants.LimitAgreement `json:"limit_agreement"`
	Consistent      bool                     `json:"is_pdf_consistent"`
	IsEcoFriendly   bool                     `json:"is_eco_friendly"`
	IsPlantMaterial bool                     `json:"is_plant_material"`
}

// CategorySubstitution tells the caller a category stood in for a food missing from the limit table.
type CategorySubstitution struct {
	OriginalFood       string  `json:"original_food"`
	MainCategory       string  `json:"main_category"`
	SubCategory        *string `json:"sub_category"`
	UsedCategoryLookup bool    `json:"used_category_lookup"`
}
