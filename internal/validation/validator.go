// Package validation wraps go-playground/validator with a shared instance and
// messages suitable for API responses.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Errors is the set of failures for one struct.
type Errors []FieldError

func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve))
	for _, fe := range ve {
		messages = append(messages, fe.Message)
	}
	return strings.Join(messages, "; ")
}

// Get returns the shared validator, registering custom rules on first use.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Struct validates s and returns Errors, or nil when s is valid.
func Struct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{{Field: "unknown", Tag: "unknown", Message: err.Error()}}
	}
	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: translate(fe)})
	}
	return out
}

var simpleMessages = map[string]string{
	"required":        "%s is required",
	"email":           "%s must be a valid email address",
	"uuid":            "%s must be a valid identifier",
	"notblank":        "%s must not be blank",
	"alphanumunicode": "%s may only contain letters and digits",
}

var paramMessages = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translate(fe validator.FieldError) string {
	field := fe.Field()
	if tmpl, ok := simpleMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	switch fe.Tag() {
	case "min", "max":
		word := "at least"
		if fe.Tag() == "max" {
			word = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be %s %s characters", field, word, fe.Param())
		case reflect.Slice:
			return fmt.Sprintf("%s must contain %s %s items", field, word, fe.Param())
		default:
			return fmt.Sprintf("%s must be %s %s", field, word, fe.Param())
		}
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
