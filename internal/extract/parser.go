package extract

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
)

// Parser assembles a CertificateRecord from validated certificate text.
type Parser struct {
	rows         *RowParser
	ecoTrigger   string
	plantTrigger string
	logger       *slog.Logger
}

func NewParser(r rules.Rules, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		rows:         NewRowParser(logger),
		ecoTrigger:   r.EcoTrigger,
		plantTrigger: r.PlantTrigger,
		logger:       logger,
	}
}

// Parse never fails; missing fields are nil or hold a sentinel.
func (p *Parser) Parse(text string) entity.CertificateRecord {
	md := ExtractMetadata(text)
	cert := entity.CertificateRecord{
		Number:            Identifier(text),
		Applicant:         Applicant(text),
		Purpose:           md.Purpose,
		SampleDescription: md.SampleDescription,
		ProducerInfo:      md.ProducerInfo,
		AnalyzedItems:     md.AnalyzedItems,
		SampleQuantity:    md.SampleQuantity,
		TestPeriod:        md.TestPeriod,
		TestStart:         md.TestStart,
		TestEnd:           md.TestEnd,
		Method:            md.Method,
		Rows:              p.rows.Parse(text),
	}
	cert.IsEcoFriendly = p.IsEcoFriendly(deref(cert.Purpose))
	cert.IsPlantMaterial = p.IsPlantMaterial(cert.Sample())

	p.logger.Info("extract.ok",
		"certificate_number", cert.NumberOr(""),
		"applicant", cert.Applicant.Name,
		"sample", cert.Sample(),
		"rows", len(cert.Rows),
		"eco_friendly", cert.IsEcoFriendly,
		"plant_material", cert.IsPlantMaterial,
	)
	return cert
}

// IsEcoFriendly reports whether the purpose text selects the eco-friendly regime.
func (p *Parser) IsEcoFriendly(purpose string) bool {
	return p.ecoTrigger != "" && strings.Contains(purpose, p.ecoTrigger)
}

// IsPlantMaterial reports whether the sample is whole-plant material.
func (p *Parser) IsPlantMaterial(sample string) bool {
	return p.plantTrigger != "" && strings.Contains(sample, p.plantTrigger)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
