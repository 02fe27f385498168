package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
)

// Applicant is the requesting party block of a certificate. Missing fields hold a sentinel.
type Applicant struct {
	Name     string `json:"name"`
	IDNumber string `json:"id_number"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// CertificateRecord is the structured output of extraction.
type CertificateRecord struct {
	ID                uuid.UUID   `json:"id"`
	Number            *string     `json:"certificate_number"`
	Applicant         Applicant   `json:"applicant"`
	Purpose           *string     `json:"analytical_purpose"`
	SampleDescription *string     `json:"sample_description"`
	ProducerInfo      *string     `json:"producer_info"`
	AnalyzedItems     *string     `json:"analyzed_items"`
	SampleQuantity    *string     `json:"sample_quantity"`
	TestPeriod        *string     `json:"test_period"`
	TestStart         *string     `json:"test_start_date"`
	TestEnd           *string     `json:"test_end_date"`
	Method            *string     `json:"analytical_method"`
	Rows              []ResultRow `json:"pesticide_results"`
	IsEcoFriendly     bool        `json:"is_eco_friendly"`
	IsPlantMaterial   bool        `json:"is_plant_material"`
	CreatedAt         time.Time   `json:"created_at"`
}

// Sample returns the sample description or "".
func (c CertificateRecord) Sample() string {
	if c.SampleDescription == nil {
		return ""
	}
	return *c.SampleDescription
}

// NumberOr returns the certificate number or def when absent.
func (c CertificateRecord) NumberOr(def string) string {
	if c.Number == nil {
		return def
	}
	return *c.Number
}

// ResultRow is one analyzed substance as printed in the result table.
type ResultRow struct {
	Name            string            `json:"pesticide_name"`
	LookupName      string            `json:"standard_pesticide_name_for_db"`
	Detection       decimal.Decimal   `json:"detection_value"`
	DetectionText   string            `json:"detection_value_text"`
	StatedLimitText string            `json:"korea_mrl_text"`
	StatedLimit     *decimal.Decimal  `json:"korea_mrl"`
	StatedOpinion   constants.Opinion `json:"result_opinion"`
	ExportCountry   *string           `json:"export_country"`
	ExportLimit     *string           `json:"export_mrl"`
}
