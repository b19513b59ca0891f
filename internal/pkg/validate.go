package pkg

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/dinesync/internal/domain"
)

// validate is the shared validator instance. Field names in messages
// come from json tags so they match what the user typed into.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateStruct checks a form struct against its validate tags and
// converts failures into a single CodeValidation error with per-field
// detail. These errors resolve locally with inline feedback; they never
// reach the network.
func ValidateStruct(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domain.NewAppError(domain.CodeValidation, "invalid input", err)
	}

	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		msg := fe.Field() + " " + ruleMessage(fe)
		parts = append(parts, msg)
	}
	return domain.NewValidationError(strings.Join(parts, "; "))
}

// ruleMessage renders one failed rule as user-displayable text.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
