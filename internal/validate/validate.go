// Package validate checks request payloads against their `validate` struct tags and reports
// every violation at once.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/pkg/utils"
)

// local@domain.tld, nothing stricter
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
			return emailRe.MatchString(fl.Field().String())
		})
		// bytes, not runes: "é" counts twice
		_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= utils.MaxPasswordBytes
		})
	})
	return v
}

// Email reports whether s has the local@domain.tld shape.
func Email(s string) bool { return emailRe.MatchString(s) }

// Struct returns nil when s is valid, otherwise one FieldError per failed rule.
func Struct(s any) []domain.FieldError {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []domain.FieldError{{Rule: "invalid", Message: err.Error()}}
	}

	out := make([]domain.FieldError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, domain.FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe.Tag(), fe.Param()),
		})
	}
	return out
}

func message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email", "simple_email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "bcrypt_len":
		return fmt.Sprintf("must be at most %d bytes", utils.MaxPasswordBytes)
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
