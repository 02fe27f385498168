package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableCertificates  = "certificates"
	tableVerifications = "verification_results"
)

var certificateDDL = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableCertificates + ` (
		id VARCHAR(36) PRIMARY KEY,
		certificate_number VARCHAR(20) NOT NULL,
		applicant_name TEXT NOT NULL,
		applicant_id_number TEXT NOT NULL,
		applicant_address TEXT NOT NULL,
		applicant_phone TEXT NOT NULL,
		analytical_purpose TEXT,
		sample_description TEXT,
		producer_info TEXT,
		analyzed_items TEXT,
		sample_quantity TEXT,
		test_period TEXT,
		test_start_date VARCHAR(10),
		test_end_date VARCHAR(10),
		analytical_method TEXT,
		is_eco_friendly BOOLEAN NOT NULL,
		is_plant_material BOOLEAN NOT NULL,
		result_rows TEXT NOT NULL,
		created_at VARCHAR(40) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_certificates_number ON ` + tableCertificates + ` (certificate_number)`,
	`CREATE TABLE IF NOT EXISTS ` + tableVerifications + ` (
		id VARCHAR(36) PRIMARY KEY,
		certificate_id VARCHAR(36) NOT NULL REFERENCES ` + tableCertificates + `(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		pesticide_name TEXT NOT NULL,
		standard_pesticide_name TEXT NOT NULL,
		pesticide_name_match BOOLEAN NOT NULL,
		name_tier VARCHAR(16) NOT NULL,
		detection_value VARCHAR(32) NOT NULL,
		pdf_korea_mrl VARCHAR(32),
		pdf_korea_mrl_text TEXT NOT NULL,
		db_korea_mrl VARCHAR(32),
		db_korea_mrl_display TEXT NOT NULL,
		limit_source VARCHAR(16) NOT NULL,
		export_country TEXT,
		export_mrl TEXT,
		pdf_result VARCHAR(16) NOT NULL,
		pdf_calculated_result VARCHAR(16) NOT NULL,
		db_calculated_result VARCHAR(16) NOT NULL,
		limit_agreement VARCHAR(16) NOT NULL,
		is_pdf_consistent BOOLEAN NOT NULL,
		is_eco_friendly BOOLEAN NOT NULL,
		is_plant_material BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_verification_results_certificate ON ` + tableVerifications + ` (certificate_id)`,
}

// Migrate creates the certificate tables when missing.
func Migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, stmt := range certificateDDL {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("certificate schema: %w", err)
		}
	}
	return nil
}
