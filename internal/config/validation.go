package config

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"acidentes/internal/charset"
	apperrors "acidentes/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("delimiter", isDelimiter)
	_ = v.RegisterValidation("encoding", isEncoding)

	// Report YAML key names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// Validate checks the configuration and returns a CONFIG AppError listing
// every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewConfigError("config validation failed", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, formatValidationError(fe))
	}

	return apperrors.NewConfigError("config validation failed: "+strings.Join(fields, "; "), nil).
		WithContext("fields", fields)
}

// formatValidationError creates a human-readable message for a field error
func formatValidationError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "delimiter":
		return fmt.Sprintf("%s must be a single character other than quote or newline, got %q", field, fe.Value())
	case "encoding":
		return fmt.Sprintf("%s: unsupported encoding %q (supported: %s)", field, fe.Value(), strings.Join(charset.Names(), ", "))
	case "datetime":
		return fmt.Sprintf("%s must match layout %s", field, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// isDelimiter accepts one character usable as a CSV field separator. The
// empty string is left to the required rules.
func isDelimiter(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return false
	}
	return r != '"' && r != '\r' && r != '\n'
}

// isEncoding accepts any name registered in package charset. The empty
// string is left to the required rules.
func isEncoding(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || charset.Supported(s)
}
