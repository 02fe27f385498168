// Package intake submits certificates end to end: pipeline, duplicate and food checks,
// category fallback, then persistence.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/coa-verifier/constants"
	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/pipeline"
	"github.com/joseph-ayodele/coa-verifier/internal/repository"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
)

// FoodStore is the part of the reference store intake needs.
type FoodStore interface {
	FoodExists(ctx context.Context, food string) (bool, error)
	LookupCategory(ctx context.Context, food string) (entity.FoodCategory, error)
	Foods(ctx context.Context) ([]string, error)
}

type Service struct {
	proc   *pipeline.Processor
	foods  FoodStore
	certs  repository.CertificateRepository
	rules  rules.Rules
	logger *slog.Logger
}

func NewService(proc *pipeline.Processor, foods FoodStore, certs repository.CertificateRepository, r rules.Rules, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{proc: proc, foods: foods, certs: certs, rules: r, logger: logger}
}

// Submission is one uploaded certificate plus the caller's choices.
type Submission struct {
	Document           entity.Document
	Overwrite          bool
	SelectedFood       string `validate:"max=200"`
	SkipFoodValidation bool
}

// Outcome is the result of one submission. Result holds whatever the pipeline produced; for a
// duplicate it holds the stored certificate instead.
type Outcome struct {
	Status       constants.Outcome            `json:"status"`
	Result       pipeline.Result              `json:"result"`
	ParsedFood   string                       `json:"parsed_food,omitempty"`
	SimilarFoods []string                     `json:"similar_foods,omitempty"`
	Substitution *entity.CategorySubstitution `json:"category_substitution_info,omitempty"`
}

// Err returns the sentinel for outcomes that need caller action, or nil.
func (o Outcome) Err() error {
	switch o.Status {
	case constants.OutcomeDuplicate:
		return common.ErrDuplicate
	case constants.OutcomeFoodSelection:
		return common.ErrFoodSelectionRequired
	default:
		return nil
	}
}

// Submit runs one certificate through the whole flow. Duplicate and food-selection outcomes are
// returned with a nil error; see Outcome.Err.
func (s *Service) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	logger := s.logger.With("req_id", reqID, "filename", sub.Document.Filename)

	if err := common.ValidateStruct(sub); err != nil {
		return Outcome{Status: constants.OutcomeFailed}, err
	}

	res, err := s.proc.Analyze(ctx, sub.Document)
	if err != nil {
		return s.finish(logger, Outcome{Status: pipeline.OutcomeFor(err), Result: res}), err
	}
	cert := &res.Certificate

	if cert.Number != nil {
		existing, records, err := s.certs.FindByNumber(ctx, *cert.Number)
		switch {
		case err == nil && !sub.Overwrite:
			logger.Info("intake.duplicate", "certificate_number", *cert.Number, "existing_id", existing.ID)
			res.Certificate, res.Verifications = existing, records
			return s.finish(logger, Outcome{Status: constants.OutcomeDuplicate, Result: res}), nil
		case err != nil && !common.IsNotFound(err):
			return s.finish(logger, Outcome{Status: constants.OutcomeFailed, Result: res}), fmt.Errorf("find certificate: %w", err)
		}
	}

	s.proc.ApplySelectedFood(cert, sub.SelectedFood)
	sample := cert.Sample()
	food := s.rules.MapFood(sample)

	if sample != "" && sub.SelectedFood == "" && !sub.SkipFoodValidation && !cert.IsPlantMaterial {
		if known, similar := s.checkFood(ctx, food); !known {
			logger.Info("intake.food.unknown", "food", food, "similar", len(similar))
			return s.finish(logger, Outcome{
				Status:       constants.OutcomeFoodSelection,
				Result:       res,
				ParsedFood:   sample,
				SimilarFoods: similar,
			}), nil
		}
	}

	fallback, substitution := s.categoryFallback(ctx, food)
	res.Verifications = s.proc.Reconcile(ctx, *cert, fallback)

	replaced, err := s.certs.Replace(ctx, cert, res.Verifications)
	if err != nil {
		return s.finish(logger, Outcome{Status: constants.OutcomeFailed, Result: res}), fmt.Errorf("store certificate: %w", err)
	}
	out := Outcome{Status: constants.OutcomeVerified, Result: res, Substitution: substitution}
	if replaced {
		out.Status = constants.OutcomeReplaced
	}
	return s.finish(logger, out), nil
}

func (s *Service) finish(logger *slog.Logger, out Outcome) Outcome {
	if s.proc.Metrics != nil {
		s.proc.Metrics.Document(out.Status)
	}
	logger.Info("intake.done",
		"status", out.Status,
		"certificate_number", out.Result.Certificate.NumberOr(""),
		"verifications", len(out.Result.Verifications),
	)
	return out
}

// checkFood reports whether food is in the limit table or the classification. Unknown foods come
// back with suggestions. Store errors count as known so that verification proceeds.
func (s *Service) checkFood(ctx context.Context, food string) (bool, []string) {
	inLimits, err := s.foods.FoodExists(ctx, food)
	if err != nil {
		s.logger.Warn("intake.food.lookup_failed", "food", food, "error", err)
		return true, nil
	}
	if inLimits {
		return true, nil
	}
	_, err = s.foods.LookupCategory(ctx, food)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, common.ErrNotFound):
		s.logger.Warn("intake.category.lookup_failed", "food", food, "error", err)
		return true, nil
	}

	all, err := s.foods.Foods(ctx)
	if err != nil {
		s.logger.Warn("intake.foods.list_failed", "error", err)
	}
	return false, SimilarFoods(food, all, s.rules.FoodSuggestionFloor, maxSuggestions)
}

// categoryFallback returns the sub and main category of food, plus substitution info when the
// food itself has no limits.
func (s *Service) categoryFallback(ctx context.Context, food string) ([]string, *entity.CategorySubstitution) {
	if food == "" {
		return nil, nil
	}
	cat, err := s.foods.LookupCategory(ctx, food)
	if err != nil {
		if !common.IsNotFound(err) {
			s.logger.Warn("intake.category.lookup_failed", "food", food, "error", err)
		}
		return nil, nil
	}
	var fallback []string
	if cat.SubCategory != nil {
		fallback = append(fallback, *cat.SubCategory)
	}
	fallback = append(fallback, cat.MainCategory)

	inLimits, err := s.foods.FoodExists(ctx, food)
	if err != nil || inLimits {
		return fallback, nil
	}
	s.logger.Info("intake.category.substitution", "food", food, "main", cat.MainCategory, "sub", cat.SubCategory)
	return fallback, &entity.CategorySubstitution{
		OriginalFood:       food,
		MainCategory:       cat.MainCategory,
		SubCategory:        cat.SubCategory,
		UsedCategoryLookup: true,
	}
}
