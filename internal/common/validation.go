package common

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateStruct checks `validate` struct tags and returns an AppError wrapping ErrValidation
// whose message lists every failing field.
func ValidateStruct(s interface{}) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	fields := FieldErrors(err)
	if len(fields) == 0 {
		return NewAppError(CodeValidation, err.Error(), ErrValidation)
	}
	messages := make([]string, 0, len(fields))
	for _, f := range fields {
		messages = append(messages, f.Error())
	}
	return NewAppError(CodeValidation, strings.Join(messages, "; "), ErrValidation)
}

// FieldErrors flattens validator errors into ValidationError values.
func FieldErrors(err error) []ValidationError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make([]ValidationError, 0, len(ves))
	for _, ve := range ves {
		msg := "failed '" + ve.Tag() + "'"
		if ve.Param() != "" {
			msg += " (" + ve.Param() + ")"
		}
		out = append(out, ValidationError{Field: ve.Namespace(), Value: ve.Value(), Message: msg})
	}
	return out
}
