package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/catalog"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/export"
	"github.com/joseph-ayodele/coa-verifier/internal/intake"
	"github.com/joseph-ayodele/coa-verifier/internal/reconcile"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
)

// LimitStore resolves one reference limit; a miss is common.ErrNotFound.
type LimitStore interface {
	Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error)
}

type CertificateService struct {
	intake  *intake.Service
	limits  LimitStore
	catalog catalog.Lookuper
	export  *export.Service
	rules   rules.Rules
	logger  *slog.Logger
}

// NewCertificateService builds the gRPC handlers. cat may be nil.
func NewCertificateService(in *intake.Service, limits LimitStore, cat catalog.Lookuper, exp *export.Service, r rules.Rules, logger *slog.Logger) *CertificateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateService{intake: in, limits: limits, catalog: cat, export: exp, rules: r, logger: logger}
}

var _ CertificateServer = (*CertificateService)(nil)

func (s *CertificateService) Verify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	filename := strings.TrimSpace(f["filename"].GetStringValue())
	if filename == "" {
		s.logger.Error("verify request missing filename")
		return nil, common.InvalidArgumentError("filename is required")
	}
	content, err := base64.StdEncoding.DecodeString(f["content_base64"].GetStringValue())
	if err != nil {
		return nil, common.InvalidArgumentErrorf("content_base64 is not valid base64: %v", err)
	}
	if len(content) == 0 {
		return nil, common.InvalidArgumentError("content_base64 is required")
	}

	out, err := s.intake.Submit(ctx, intake.Submission{
		Document: entity.Document{
			Filename: filename,
			Ext:      constants.NormalizeExt(filepath.Ext(filename)),
			Content:  content,
		},
		Overwrite:          f["overwrite"].GetBoolValue(),
		SelectedFood:       f["selected_food"].GetStringValue(),
		SkipFoodValidation: f["skip_food_validation"].GetBoolValue(),
	})
	if err != nil {
		s.logger.Warn("verify.failed", "filename", filename, "error", err)
		return nil, submitStatus(err)
	}
	if out.Status == constants.OutcomeFoodSelection {
		return nil, statusWithDetail(codes.FailedPrecondition,
			fmt.Sprintf("%q is not in the reference tables; select a food", out.ParsedFood),
			foodSelection{ParsedFood: out.ParsedFood, SimilarFoods: out.SimilarFoods, RequiresFoodSelection: true})
	}

	resp, err := toStruct(out)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return resp, nil
}

type foodSelection struct {
	ParsedFood            string   `json:"parsed_food"`
	SimilarFoods          []string `json:"similar_foods"`
	RequiresFoodSelection bool     `json:"requires_food_selection"`
}

type lookupResponse struct {
	Source  constants.LimitSource `json:"source"`
	Display string                `json:"display"`
	Limit   entity.ReferenceLimit `json:"limit"`
}

func (s *CertificateService) Lookup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	substance := strings.TrimSpace(f["substance"].GetStringValue())
	food := strings.TrimSpace(f["food"].GetStringValue())
	if substance == "" || food == "" {
		return nil, common.InvalidArgumentError("substance and food are required")
	}
	food = s.rules.MapFood(food)

	source := constants.LimitFromReference
	ref, err := s.limits.Lookup(ctx, substance, food)
	if common.IsNotFound(err) && s.catalog != nil {
		source = constants.LimitFromCatalog
		ref, err = s.catalog.Lookup(ctx, substance, food)
	}
	switch {
	case err == nil:
	case common.IsNotFound(err):
		return nil, common.NotFoundError(fmt.Sprintf("no limit for %s in %s", substance, food))
	case errors.Is(err, common.ErrCatalogUnavailable):
		s.logger.Warn("lookup.catalog_unavailable", "substance", substance, "food", food, "error", err)
		return nil, common.UnavailableError("remote catalog unavailable")
	default:
		s.logger.Error("lookup.failed", "substance", substance, "food", food, "error", err)
		return nil, common.InternalErrorf("lookup: %v", err)
	}

	resp, err := toStruct(lookupResponse{
		Source:  source,
		Display: reconcile.FormatLimit(ref.Limit, ref.ConditionCode),
		Limit:   ref,
	})
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return resp, nil
}

func (s *CertificateService) ExportCertificate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	number := strings.TrimSpace(req.GetFields()["certificate_number"].GetStringValue())
	if number == "" {
		return nil, common.InvalidArgumentError("certificate_number is required")
	}
	xlsx, err := s.export.ExportCertificate(ctx, number)
	if common.IsNotFound(err) {
		return nil, common.NotFoundError("certificate " + number + " not found")
	}
	if err != nil {
		s.logger.Error("export.xlsx.failed", "certificate_number", number, "error", err)
		return nil, common.InternalError(err.Error())
	}
	return structpb.NewStruct(map[string]any{
		"certificate_number": number,
		"xlsx_base64":        base64.StdEncoding.EncodeToString(xlsx),
	})
}
