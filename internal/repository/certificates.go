package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

type CertificateRepository interface {
	FindByNumber(ctx context.Context, number string) (entity.CertificateRecord, []entity.VerificationRecord, error)
	// Replace deletes any certificate with the same number and its verifications, then inserts
	// cert and records, all in one transaction. IDs are assigned in place.
	Replace(ctx context.Context, cert *entity.CertificateRecord, records []entity.VerificationRecord) (replaced bool, err error)
	Count(ctx context.Context) (int, error)
}

type certificateRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewCertificateRepository(drv *entsql.Driver, logger *slog.Logger) CertificateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &certificateRepository{drv: drv, logger: logger}
}

var certificateColumns = []string{
	"id", "certificate_number",
	"applicant_name", "applicant_id_number", "applicant_address", "applicant_phone",
	"analytical_purpose", "sample_description", "producer_info", "analyzed_items",
	"sample_quantity", "test_period", "test_start_date", "test_end_date", "analytical_method",
	"is_eco_friendly", "is_plant_material", "result_rows", "created_at",
}

var verificationColumns = []string{
	"id", "certificate_id", "position",
	"pesticide_name", "standard_pesticide_name", "pesticide_name_match", "name_tier",
	"detection_value", "pdf_korea_mrl", "pdf_korea_mrl_text",
	"db_korea_mrl", "db_korea_mrl_display", "limit_source",
	"export_country", "export_mrl",
	"pdf_result", "pdf_calculated_result", "db_calculated_result",
	"limit_agreement", "is_pdf_consistent", "is_eco_friendly", "is_plant_material",
}

func (r *certificateRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

func (r *certificateRepository) FindByNumber(ctx context.Context, number string) (entity.CertificateRecord, []entity.VerificationRecord, error) {
	query, args := r.builder().
		Select(certificateColumns...).
		From(entsql.Table(tableCertificates)).
		Where(entsql.EQ("certificate_number", number)).
		Limit(1).
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		r.logger.Error("failed to query certificate", "certificate_number", number, "error", err)
		return entity.CertificateRecord{}, nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	cert, found, err := scanCertificate(rows)
	rows.Close()
	if err != nil {
		return entity.CertificateRecord{}, nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if !found {
		return entity.CertificateRecord{}, nil, common.ErrNotFound
	}

	records, err := r.verifications(ctx, cert.ID)
	if err != nil {
		return entity.CertificateRecord{}, nil, err
	}
	return cert, records, nil
}

func (r *certificateRepository) verifications(ctx context.Context, certID uuid.UUID) ([]entity.VerificationRecord, error) {
	query, args := r.builder().
		Select(verificationColumns...).
		From(entsql.Table(tableVerifications)).
		Where(entsql.EQ("certificate_id", certID.String())).
		OrderBy("position").
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	var out []entity.VerificationRecord
	for rows.Next() {
		rec, err := scanVerification(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *certificateRepository) Replace(ctx context.Context, cert *entity.CertificateRecord, records []entity.VerificationRecord) (replaced bool, err error) {
	number := cert.NumberOr(constants.Unknown)
	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	if cert.Number != nil {
		replaced, err = r.deleteExisting(ctx, tx, number)
		if err != nil {
			return false, err
		}
	}

	if cert.ID == uuid.Nil {
		cert.ID = uuid.New()
	}
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now().UTC()
	}
	query, args, err := r.insertCertificate(*cert, number)
	if err != nil {
		return false, err
	}
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	for i := range records {
		rec := &records[i]
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.CertificateID = cert.ID
		query, args := r.insertVerification(*rec)
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			return false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	r.logger.Info("certificate stored",
		"certificate_id", cert.ID,
		"certificate_number", number,
		"verifications", len(records),
		"replaced", replaced,
	)
	return replaced, nil
}

func (r *certificateRepository) deleteExisting(ctx context.Context, tx dialect.Tx, number string) (bool, error) {
	query, args := r.builder().
		Select("id").
		From(entsql.Table(tableCertificates)).
		Where(entsql.EQ("certificate_number", number)).
		Query()
	rows := &entsql.Rows{}
	if err := tx.Query(ctx, query, args, rows); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	var ids []any
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if len(ids) == 0 {
		return false, nil
	}

	for _, del := range []struct{ table, col string }{
		{tableVerifications, "certificate_id"},
		{tableCertificates, "id"},
	} {
		query, args := r.builder().Delete(del.table).Where(entsql.In(del.col, ids...)).Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return false, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
	}
	r.logger.Debug("certificate replaced", "certificate_number", number, "deleted", len(ids))
	return true, nil
}

func (r *certificateRepository) insertCertificate(c entity.CertificateRecord, number string) (string, []any, error) {
	rowsJSON, err := json.Marshal(c.Rows)
	if err != nil {
		return "", nil, fmt.Errorf("encode result rows: %w", err)
	}
	query, args := r.builder().Insert(tableCertificates).
		Columns(certificateColumns...).
		Values(
			c.ID.String(), number,
			c.Applicant.Name, c.Applicant.IDNumber, c.Applicant.Address, c.Applicant.Phone,
			nullable(c.Purpose), nullable(c.SampleDescription), nullable(c.ProducerInfo), nullable(c.AnalyzedItems),
			nullable(c.SampleQuantity), nullable(c.TestPeriod), nullable(c.TestStart), nullable(c.TestEnd), nullable(c.Method),
			c.IsEcoFriendly, c.IsPlantMaterial, string(rowsJSON), c.CreatedAt.Format(time.RFC3339Nano),
		).
		Query()
	return query, args, nil
}

func (r *certificateRepository) insertVerification(v entity.VerificationRecord) (string, []any) {
	return r.builder().Insert(tableVerifications).
		Columns(verificationColumns...).
		Values(
			v.ID.String(), v.CertificateID.String(), v.Position,
			v.Name, v.CanonicalName, v.NameMatch, string(v.NameTier),
			v.Detection.String(), nullableDecimal(v.StatedLimit), v.StatedLimitText,
			nullableDecimal(v.ResolvedLimit), v.ResolvedLimitDisplay, string(v.LimitSource),
			nullable(v.ExportCountry), nullable(v.ExportLimit),
			string(v.StatedOpinion), string(v.StatedRegimeVerdict), string(v.ResolvedRegimeVerdict),
			string(v.LimitAgreement), v.Consistent, v.IsEcoFriendly, v.IsPlantMaterial,
		).
		Query()
}

func (r *certificateRepository) Count(ctx context.Context) (int, error) {
	query, args := r.builder().
		Select(entsql.Count("*")).
		From(entsql.Table(tableCertificates)).
		Query()
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()
	n, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return n, nil
}

func scanCertificate(rows *entsql.Rows) (entity.CertificateRecord, bool, error) {
	if !rows.Next() {
		return entity.CertificateRecord{}, false, rows.Err()
	}
	var (
		c                               entity.CertificateRecord
		id, number, rowsJSON, createdAt string
		purpose, sample, producer       sql.NullString
		items, qty, period              sql.NullString
		start, end, method              sql.NullString
	)
	err := rows.Scan(
		&id, &number,
		&c.Applicant.Name, &c.Applicant.IDNumber, &c.Applicant.Address, &c.Applicant.Phone,
		&purpose, &sample, &producer, &items,
		&qty, &period, &start, &end, &method,
		&c.IsEcoFriendly, &c.IsPlantMaterial, &rowsJSON, &createdAt,
	)
	if err != nil {
		return c, false, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return c, false, fmt.Errorf("certificate id %q: %w", id, err)
	}
	if number != constants.Unknown {
		c.Number = &number
	}
	c.Purpose, c.SampleDescription, c.ProducerInfo = ptr(purpose), ptr(sample), ptr(producer)
	c.AnalyzedItems, c.SampleQuantity, c.TestPeriod = ptr(items), ptr(qty), ptr(period)
	c.TestStart, c.TestEnd, c.Method = ptr(start), ptr(end), ptr(method)
	if err := json.Unmarshal([]byte(rowsJSON), &c.Rows); err != nil {
		return c, false, fmt.Errorf("decode result rows: %w", err)
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return c, false, fmt.Errorf("created_at %q: %w", createdAt, err)
	}
	return c, true, nil
}

func scanVerification(rows *entsql.Rows) (entity.VerificationRecord, error) {
	var (
		v                                      entity.VerificationRecord
		id, certID, tier, det, source          string
		stated, resolved, country, exportLimit sql.NullString
		opinion, statedVerdict, dbVerdict, agr string
	)
	err := rows.Scan(
		&id, &certID, &v.Position,
		&v.Name, &v.CanonicalName, &v.NameMatch, &tier,
		&det, &stated, &v.StatedLimitText,
		&resolved, &v.ResolvedLimitDisplay, &source,
		&country, &exportLimit,
		&opinion, &statedVerdict, &dbVerdict,
		&agr, &v.Consistent, &v.IsEcoFriendly, &v.IsPlantMaterial,
	)
	if err != nil {
		return v, err
	}
	if v.ID, err = uuid.Parse(id); err != nil {
		return v, err
	}
	if v.CertificateID, err = uuid.Parse(certID); err != nil {
		return v, err
	}
	if v.Detection, err = decimal.NewFromString(det); err != nil {
		return v, fmt.Errorf("detection_value %q: %w", det, err)
	}
	if v.StatedLimit, err = decimalPtr(stated); err != nil {
		return v, err
	}
	if v.ResolvedLimit, err = decimalPtr(resolved); err != nil {
		return v, err
	}
	v.NameTier = constants.NameTier(tier)
	v.LimitSource = constants.LimitSource(source)
	v.ExportCountry, v.ExportLimit = ptr(country), ptr(exportLimit)
	v.StatedOpinion = constants.Opinion(opinion)
	v.StatedRegimeVerdict = constants.Opinion(statedVerdict)
	v.ResolvedRegimeVerdict = constants.Opinion(dbVerdict)
	v.LimitAgreement = constants.LimitAgreement(agr)
	return v, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func decimalPtr(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("decimal %q: %w", ns.String, err)
	}
	return &d, nil
}
