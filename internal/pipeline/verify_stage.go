package pipeline

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/reconcile"
)

// ApplySelectedFood overrides the sample description with a caller-chosen food.
func (p *Processor) ApplySelectedFood(cert *entity.CertificateRecord, food string) {
	food = strings.TrimSpace(food)
	if food == "" {
		return
	}
	cert.SampleDescription = &food
	cert.IsPlantMaterial = p.Parse.IsPlantMaterial(food)
}

// Reconcile verifies the certificate rows against the reference limits.
func (p *Processor) Reconcile(ctx context.Context, cert entity.CertificateRecord, fallbackFoods []string) []entity.VerificationRecord {
	plant := cert.IsPlantMaterial
	purpose := ""
	if cert.Purpose != nil {
		purpose = *cert.Purpose
	}
	records := p.Verify.Verify(ctx, reconcile.Input{
		Rows:              cert.Rows,
		SampleDescription: cert.Sample(),
		FallbackFoods:     fallbackFoods,
		Purpose:           purpose,
		IsPlantMaterial:   &plant,
	})

	inconsistent := 0
	for _, r := range records {
		if !r.Consistent {
			inconsistent++
		}
	}
	p.log(ctx).Info("pipeline.verify.ok",
		"certificate_number", cert.NumberOr(""),
		"sample", cert.Sample(),
		"rows", len(records),
		"inconsistent", inconsistent,
	)
	return records
}
