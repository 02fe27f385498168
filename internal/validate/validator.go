// Package validate gates extraction on the structure and issuer of a recovered certificate text.
package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
	"github.com/joseph-ayodele/coa-verifier/internal/rules"
)

type element struct {
	tag string
	re  *regexp.Regexp
}

type Validator struct {
	elements  []element
	threshold int
	issuers   []string
	minText   int
	logger    *slog.Logger
}

// FailedError carries the verdict of a document that did not pass validation.
type FailedError struct {
	Verdict entity.ValidationVerdict
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("certificate validation failed: %d/%d elements, issuer_ok=%t",
		len(e.Verdict.FoundElements), len(e.Verdict.FoundElements)+len(e.Verdict.MissingElements), e.Verdict.IssuerOK)
}

func (e *FailedError) Unwrap() error { return common.ErrValidationFailed }

func New(r rules.Rules, logger *slog.Logger) (*Validator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{
		threshold: r.StructuralThreshold,
		issuers:   r.Issuers,
		minText:   r.MinTextLength,
		logger:    logger,
	}
	for _, el := range r.Elements {
		re, err := regexp.Compile("(?i)" + el.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile element %q: %w", el.Tag, err)
		}
		v.elements = append(v.elements, element{tag: el.Tag, re: re})
	}
	return v, nil
}

// Validate runs the structural and issuer checks independently; both must pass.
func (v *Validator) Validate(text string) entity.ValidationVerdict {
	verdict := entity.ValidationVerdict{
		FoundElements:   []string{},
		MissingElements: []string{},
	}
	for _, el := range v.elements {
		if el.re.MatchString(text) {
			verdict.FoundElements = append(verdict.FoundElements, el.tag)
		} else {
			verdict.MissingElements = append(verdict.MissingElements, el.tag)
		}
	}
	structureOK := len(verdict.FoundElements) >= v.threshold

	for _, issuer := range v.issuers {
		if strings.Contains(text, issuer) {
			verdict.IssuerOK = true
			verdict.IssuerMatch = issuer
			break
		}
	}

	verdict.Passed = structureOK && verdict.IssuerOK
	verdict.Feedback = v.feedback(verdict, structureOK, utf8.RuneCountInString(strings.TrimSpace(text)))

	if verdict.Passed {
		v.logger.Debug("validate.ok",
			"found", len(verdict.FoundElements), "issuer", verdict.IssuerMatch)
	} else {
		v.logger.Warn("validate.failed",
			"found", len(verdict.FoundElements),
			"threshold", v.threshold,
			"missing", verdict.MissingElements,
			"issuer_ok", verdict.IssuerOK,
		)
	}
	return verdict
}

// Check is Validate returning *FailedError when the verdict did not pass.
func (v *Validator) Check(text string) (entity.ValidationVerdict, error) {
	verdict := v.Validate(text)
	if !verdict.Passed {
		return verdict, &FailedError{Verdict: verdict}
	}
	return verdict, nil
}
