package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"notes-quiz/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Validator checks request DTOs against their validate tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance that reports fields by their
// JSON names
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s and converts failures into domain.ValidationErrors.
// It returns nil when s is valid.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.NewInvalidInputError(err.Error())
	}

	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toDomain(fe))
	}
	return out
}

func toDomain(fe validator.FieldError) domain.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return domain.NewMissingFieldError(field)
	case "min", "gte":
		return domain.ValidationError{
			Field:   field,
			Code:    domain.CodeOutOfRange,
			Message: fmt.Sprintf("must be at least %s", fe.Param()),
			Value:   fe.Value(),
		}
	case "max", "lte":
		return domain.ValidationError{
			Field:   field,
			Code:    domain.CodeOutOfRange,
			Message: fmt.Sprintf("must be at most %s", fe.Param()),
			Value:   fe.Value(),
		}
	case "oneof":
		return domain.ValidationError{
			Field:   field,
			Code:    domain.CodeInvalidFormat,
			Message: fmt.Sprintf("must be one of [%s]", fe.Param()),
			Value:   fe.Value(),
		}
	default:
		return domain.NewInvalidFormatError(field, fe.Value())
	}
}
