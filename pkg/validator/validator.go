package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	SkuRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]*$`)
)

// Validator is a validator that validates the given struct.
type Validator interface {
	// Validate validates the given struct
	Validate(s any) error
}

type DefaultValidator struct {
	v *validator.Validate
}

// NewDefaultValidator creates a new default validator.
// It returns a new DefaultValidator and an error if the validator registration fails.
func NewDefaultValidator() (*DefaultValidator, error) {
	v := validator.New()

	// Register custom validators
	if err := v.RegisterValidation("sku", validateSku); err != nil {
		return nil, fmt.Errorf("register sku validator: %w", err)
	}

	if err := v.RegisterValidation("money", validateMoney); err != nil {
		return nil, fmt.Errorf("register money validator: %w", err)
	}

	return &DefaultValidator{v: v}, nil
}

func (v DefaultValidator) Validate(s any) error {
	return v.v.Struct(s)
}

func ValidationErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "sku":
		return "must contain only uppercase letters, digits and dashes"
	case "money":
		return "must be a non-negative decimal amount"
	default:
		return "is invalid"
	}
}

func validateSku(fl validator.FieldLevel) bool {
	return SkuRegex.MatchString(fl.Field().String())
}

// validateMoney accepts any type exposing an IsNegative() bool method, letting
// decimal-backed fields participate in struct validation.
func validateMoney(fl validator.FieldLevel) bool {
	type money interface {
		IsNegative() bool
	}

	value, ok := fl.Field().Interface().(money)
	if !ok {
		return false
	}

	return !value.IsNegative()
}
