// Package validate checks configuration and verification requests
// against go-playground/validator struct rules.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/claimcheck/internal/model"
)

// MaxIDLength bounds caller-supplied record ids
const MaxIDLength = 128

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML/JSON names, as users write them
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"yaml", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return val
}

// requestRules mirrors a verification request
type requestRules struct {
	Text string `json:"text" validate:"required_without=URL"`
	URL  string `json:"url" validate:"omitempty,http_url"`
	ID   string `json:"id" validate:"omitempty,max=128,printascii,excludesall=/?#"`
}

// Request validates one verification request. Failures are *model.InputError.
func Request(text, rawURL, id string) error {
	rules := requestRules{
		Text: strings.TrimSpace(text),
		URL:  strings.TrimSpace(rawURL),
		ID:   strings.TrimSpace(id),
	}
	if rules.Text == "" && rules.URL == "" {
		return &model.InputError{Err: model.ErrMissingInput}
	}
	if err := v.Struct(rules); err != nil {
		return &model.InputError{Reason: describe(err), Err: err}
	}
	return nil
}

// Config validates the effective process configuration
func Config(cfg *model.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %s", describe(err))
	}
	if cfg.RateLimiting.RequestsPerSecond > 0 && cfg.RateLimiting.BurstSize < 1 {
		return errors.New("invalid config: rate_limiting.burst_size must be at least 1 when throttling is enabled")
	}
	return nil
}

// describe renders validation errors as "field: rule" pairs
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fieldPath(fe.Namespace()), rule(fe)))
	}
	return strings.Join(parts, "; ")
}

// fieldPath drops the root struct name ("Config.http.timeout" -> "http.timeout")
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func rule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + strings.ToLower(fe.Param()) + " is empty"
	case "http_url":
		return "must be an absolute http(s) URL"
	case "url":
		return "must be a URL"
	case "hostname_port":
		return "must be host:port"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gtfield":
		return "must be greater than " + fe.Param()
	case "printascii", "excludesall":
		return "contains characters that are not allowed"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
}
