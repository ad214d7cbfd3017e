package shared

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/quill-api/quill/internal/platform/httpx"
)

// Password length bounds for the "password" rule. The upper bound is in bytes
// because bcrypt rejects longer input.
const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

// NewValidator returns a validator that reports JSON field names and knows
// the "password" strength rule.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return PasswordProblem(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})
	return v
}

// PasswordProblem describes why a password is too weak, or "" when it is acceptable.
func PasswordProblem(password string) string {
	if len(password) < MinPasswordLength {
		return "must be at least 8 characters"
	}
	if len(password) > MaxPasswordBytes {
		return "must be at most 72 bytes"
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "must contain an uppercase letter"
	case !lower:
		return "must contain a lowercase letter"
	case !digit:
		return "must contain a digit"
	}
	return ""
}

// ValidUsername accepts letters, digits, '.', '-' and '_'.
func ValidUsername(username string) bool {
	if username == "" {
		return false
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			continue
		}
		return false
	}
	return true
}

// ValidateStruct runs v against s and converts failures into *httpx.FieldErrors.
func ValidateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &httpx.FieldErrors{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "password":
		if value, ok := fe.Value().(string); ok {
			return PasswordProblem(value)
		}
		return "is too weak"
	case "username":
		return "may only contain letters, digits, dots, dashes and underscores"
	default:
		return "is invalid"
	}
}
