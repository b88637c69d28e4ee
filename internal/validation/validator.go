// Package validation validates request bodies and QR content payloads with validator/v10.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/idna"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	domainerrors "github.com/scanlytics/scanlytics-server/internal/errors"
	"github.com/scanlytics/scanlytics-server/internal/qrimage"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the qrcolor and qrtype tags registered.
func New() *Validator {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	//nolint:errcheck // Registration only fails for empty tags.
	_ = v.RegisterValidation("qrcolor", func(fl validator.FieldLevel) bool {
		_, err := qrimage.ParseColor(fl.Field().String(), domain.DefaultForegroundColor)
		return err == nil
	})
	//nolint:errcheck // Registration only fails for empty tags.
	_ = v.RegisterValidation("qrtype", func(fl validator.FieldLevel) bool {
		return domain.ContentType(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err, "")
	}
	return nil
}

// ValidateContent checks a payload against the shape its type requires.
// Field errors are reported under "content.<field>".
func (v *Validator) ValidateContent(t domain.ContentType, raw json.RawMessage) error {
	if domain.IsEmptyContent(raw) {
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"content": "is required",
		})
	}

	switch t {
	case domain.ContentURL:
		target := domain.ContentTarget(raw)
		if target == "" {
			return contentError("url", "is required")
		}
		if err := CheckURL(target); err != nil {
			return contentError("url", err.Error())
		}
		return nil

	case domain.ContentWiFi:
		var w domain.WiFiContent
		if err := domain.DecodeContent(raw, &w); err != nil {
			return contentError("ssid", "must be an object with an ssid")
		}
		return v.validateNested(w)

	case domain.ContentVCard:
		var c domain.VCardContent
		if err := domain.DecodeContent(raw, &c); err != nil {
			return contentError("name", "must be an object with a name")
		}
		return v.validateNested(c)

	default:
		return nil
	}
}

func (v *Validator) validateNested(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err, "content.")
	}
	return nil
}

func contentError(field, msg string) error {
	return domainerrors.ValidationWithDetails("validation failed", map[string]string{
		"content." + field: msg,
	})
}

// CheckURL requires an absolute http(s) URL whose host is a valid
// hostname, IDN or IP literal.
func CheckURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("must include a host")
	}
	if strings.Contains(u.Host, "[") || isIPv4(host) {
		return nil
	}
	if _, err := idna.Lookup.ToASCII(host); err != nil {
		return fmt.Errorf("has an invalid host: %s", host)
	}
	return nil
}

func isIPv4(host string) bool {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 || strings.Trim(p, "0123456789") != "" {
			return false
		}
	}
	return true
}

func (v *Validator) formatError(err error, prefix string) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[prefix+fieldPath(e)] = v.friendlyMessage(e)
	}

	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

// fieldPath drops the top-level struct name from the namespace so nested
// fields read "customization.size".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "qrcolor":
		return "must be a hex color or color name"
	case "qrtype":
		return "must be one of: url text wifi vcard file"
	default:
		return "is invalid"
	}
}
