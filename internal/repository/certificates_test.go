package repository

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestRepo(t *testing.T) CertificateRepository {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", slog.Default())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close(slog.Default()) })
	if err := Migrate(ctx, db.Driver); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewCertificateRepository(db.Driver, nil)
}

func sampleCertificate(number *string) entity.CertificateRecord {
	return entity.CertificateRecord{
		Number:            number,
		Applicant:         entity.Applicant{Name: "농업회사법인 푸른들", IDNumber: "110111-1234567", Address: constants.NotProvided, Phone: constants.NotProvided},
		Purpose:           strPtr("수출"),
		SampleDescription: strPtr("깻잎"),
		TestStart:         strPtr("2024-03-04"),
		TestEnd:           strPtr("2024-03-08"),
		Rows: []entity.ResultRow{{
			Name: "Chlorpyrifos", LookupName: "Chlorpyrifos",
			Detection: decimal.RequireFromString("0.02"), DetectionText: "0.02",
			StatedLimitText: "0.05", StatedLimit: decPtr("0.05"), StatedOpinion: constants.Compliant,
		}},
	}
}

func sampleVerifications() []entity.VerificationRecord {
	return []entity.VerificationRecord{
		{
			Position: 0, Name: "Chlorpyrifos", CanonicalName: "Chlorpyrifos", NameMatch: true, NameTier: constants.NameExact,
			Detection: decimal.RequireFromString("0.02"), StatedLimit: decPtr("0.05"), StatedLimitText: "0.05",
			ResolvedLimit: decPtr("0.05"), ResolvedLimitDisplay: "0.05", LimitSource: constants.LimitFromReference,
			StatedOpinion: constants.Compliant, StatedRegimeVerdict: constants.Compliant, ResolvedRegimeVerdict: constants.Compliant,
			LimitAgreement: constants.AgreementExact, Consistent: true,
		},
		{
			Position: 1, Name: "Unknownazole", CanonicalName: "Unknownazole", NameTier: constants.NameVerbatim,
			Detection: decimal.RequireFromString("0.2"), StatedLimitText: "-",
			ResolvedLimitDisplay: "PLS 0.01", ResolvedLimit: decPtr("0.01"), LimitSource: constants.LimitDefaultFloor,
			ExportCountry: strPtr("일본"), ExportLimit: strPtr("0.1"),
			StatedOpinion: constants.NotApplicable, StatedRegimeVerdict: constants.Indeterminate, ResolvedRegimeVerdict: constants.NonCompliant,
			LimitAgreement: constants.AgreementMissing,
		},
	}
}

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestReplaceAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cert := sampleCertificate(strPtr("2024-0312"))
	records := sampleVerifications()
	replaced, err := repo.Replace(ctx, &cert, records)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if replaced {
		t.Fatal("first insert reported replaced")
	}
	if cert.ID == uuid.Nil || cert.CreatedAt.IsZero() {
		t.Fatalf("Replace did not assign id/created_at: %+v", cert)
	}
	for _, r := range records {
		if r.ID == uuid.Nil || r.CertificateID != cert.ID {
			t.Fatalf("verification ids not assigned: %+v", r)
		}
	}

	gotCert, gotRecords, err := repo.FindByNumber(ctx, "2024-0312")
	if err != nil {
		t.Fatalf("FindByNumber: %v", err)
	}
	if diff := cmp.Diff(cert, gotCert, decimalComparer, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("certificate mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(records, gotRecords, decimalComparer); diff != "" {
		t.Errorf("verifications mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceOverwritesSameNumber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := sampleCertificate(strPtr("2024-0312"))
	if _, err := repo.Replace(ctx, &first, sampleVerifications()); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	second := sampleCertificate(strPtr("2024-0312"))
	second.SampleDescription = strPtr("들깻잎")
	replaced, err := repo.Replace(ctx, &second, sampleVerifications()[:1])
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !replaced {
		t.Fatal("second insert did not report replaced")
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
	got, records, err := repo.FindByNumber(ctx, "2024-0312")
	if err != nil {
		t.Fatalf("FindByNumber: %v", err)
	}
	if got.ID != second.ID || got.Sample() != "들깻잎" {
		t.Errorf("FindByNumber returned stale certificate %+v", got)
	}
	if len(records) != 1 {
		t.Errorf("verifications = %d, want 1", len(records))
	}
}

func TestReplaceWithoutNumberNeverDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		cert := sampleCertificate(nil)
		replaced, err := repo.Replace(ctx, &cert, nil)
		if err != nil {
			t.Fatalf("Replace: %v", err)
		}
		if replaced {
			t.Fatalf("certificate without number reported replaced on insert %d", i)
		}
	}
	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}

	got, _, err := repo.FindByNumber(ctx, constants.Unknown)
	if err != nil {
		t.Fatalf("FindByNumber(sentinel): %v", err)
	}
	if got.Number != nil {
		t.Errorf("sentinel number decoded as %q, want nil", *got.Number)
	}
}

func TestFindByNumberMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, _, err := repo.FindByNumber(context.Background(), "9999-0001")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
