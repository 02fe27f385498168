package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/repository"
)

const (
	sheetCertificate  = "Certificate"
	sheetVerification = "Verification"
	sheetSummary      = "Summary"
)

// Service renders verification results as XLSX workbooks.
type Service struct {
	certs  repository.CertificateRepository
	logger *slog.Logger
}

// NewService builds an exporter. certs may be nil when only in-memory results are exported.
func NewService(certs repository.CertificateRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{certs: certs, logger: logger}
}

// ExportCertificate renders a stored certificate by number.
func (s *Service) ExportCertificate(ctx context.Context, number string) ([]byte, error) {
	if s.certs == nil {
		return nil, fmt.Errorf("export: no certificate repository")
	}
	cert, records, err := s.certs.FindByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return s.VerificationXLSX(cert, records)
}

// VerificationXLSX returns a two-sheet workbook: certificate metadata, then one row per record.
func (s *Service) VerificationXLSX(cert entity.CertificateRecord, records []entity.VerificationRecord) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", sheetCertificate); err != nil {
		return nil, err
	}
	meta := [][2]string{
		{"검정증명서 번호", cert.NumberOr(constants.Unknown)},
		{"신청인", cert.Applicant.Name},
		{"법인등록번호", cert.Applicant.IDNumber},
		{"주소", cert.Applicant.Address},
		{"전화번호", cert.Applicant.Phone},
		{"검정목적", deref(cert.Purpose)},
		{"검정품목", deref(cert.SampleDescription)},
		{"생산자/수거지", deref(cert.ProducerInfo)},
		{"검정항목", deref(cert.AnalyzedItems)},
		{"시료 점수 및 중량", deref(cert.SampleQuantity)},
		{"검정기간", deref(cert.TestPeriod)},
		{"검정방법", deref(cert.Method)},
		{"친환경", yesNo(cert.IsEcoFriendly)},
		{"작물체", yesNo(cert.IsPlantMaterial)},
	}
	for i, kv := range meta {
		if err := f.SetSheetRow(sheetCertificate, cell(1, i+1), &[]any{kv[0], kv[1]}); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetCertificate, "A", "A", 20)
	_ = f.SetColWidth(sheetCertificate, "B", "B", 60)

	if _, err := f.NewSheet(sheetVerification); err != nil {
		return nil, err
	}
	headers := []any{
		"농약성분명", "표준 농약명", "명칭 일치", "검출량",
		"증명서 기준", "DB 기준", "기준 출처", "기준 비교",
		"증명서 의견", "증명서 기준 판정", "DB 기준 판정", "일치 여부",
	}
	if err := f.SetSheetRow(sheetVerification, "A1", &headers); err != nil {
		return nil, err
	}
	for i, r := range records {
		row := []any{
			r.Name,
			r.CanonicalName,
			yesNo(r.NameMatch),
			r.Detection.String(),
			r.StatedLimitText,
			r.ResolvedLimitDisplay,
			string(r.LimitSource),
			string(r.LimitAgreement),
			string(r.StatedOpinion),
			string(r.StatedRegimeVerdict),
			string(r.ResolvedRegimeVerdict),
			yesNo(r.Consistent),
		}
		if err := f.SetSheetRow(sheetVerification, cell(1, i+2), &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetVerification, "A", "B", 24) // names
	_ = f.SetColWidth(sheetVerification, "C", "D", 10)
	_ = f.SetColWidth(sheetVerification, "E", "F", 14) // limits
	_ = f.SetColWidth(sheetVerification, "G", "L", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"certificate_number", cert.NumberOr(""),
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// BatchEntry is one processed file in a batch summary.
type BatchEntry struct {
	Path              string
	Status            string
	CertificateNumber string
	Sample            string
	Rows              int
	Inconsistent      int
	Err               string
}

// SummaryXLSX returns a one-sheet workbook with a row per processed file.
func (s *Service) SummaryXLSX(entries []BatchEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	headers := []any{"파일", "결과", "증명서 번호", "검정품목", "성분 수", "불일치", "오류"}
	if err := f.SetSheetRow(sheetSummary, "A1", &headers); err != nil {
		return nil, err
	}
	for i, e := range entries {
		row := []any{e.Path, e.Status, e.CertificateNumber, e.Sample, e.Rows, e.Inconsistent, truncate(e.Err, 140)}
		if err := f.SetSheetRow(sheetSummary, cell(1, i+2), &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 60) // path
	_ = f.SetColWidth(sheetSummary, "B", "D", 22)
	_ = f.SetColWidth(sheetSummary, "E", "F", 10)
	_ = f.SetColWidth(sheetSummary, "G", "G", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "summary_rows", len(entries))
	return buf.Bytes(), nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
