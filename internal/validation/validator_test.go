package validation_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	domainerrors "github.com/scanlytics/scanlytics-server/internal/errors"
	"github.com/scanlytics/scanlytics-server/internal/validation"
)

type generateRequest struct {
	Title string                     `json:"title" validate:"required,max=200"`
	Type  domain.ContentType         `json:"type" validate:"required,qrtype"`
	Color string                     `json:"foregroundColor,omitempty" validate:"omitempty,qrcolor"`
	Style *domain.CustomizationPatch `json:"customization,omitempty"`
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domainerrors.CodeValidation, de.Code)
	fields, ok := de.Details.(map[string]string)
	require.True(t, ok, "details should be a field map, got %T", de.Details)
	return fields
}

func intPtr(v int) *int { return &v }

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(generateRequest{Title: "Menu", Type: domain.ContentURL, Color: "#ff0000"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       generateRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing title",
			req:       generateRequest{Type: domain.ContentText},
			wantField: "title",
			wantMsg:   "is required",
		},
		{
			name:      "unknown type",
			req:       generateRequest{Title: "x", Type: "barcode"},
			wantField: "type",
			wantMsg:   "must be one of: url text wifi vcard file",
		},
		{
			name:      "bad color",
			req:       generateRequest{Title: "x", Type: domain.ContentURL, Color: "not-a-color"},
			wantField: "foregroundColor",
			wantMsg:   "must be a hex color or color name",
		},
		{
			name: "size out of range",
			req: generateRequest{
				Title: "x", Type: domain.ContentURL,
				Style: &domain.CustomizationPatch{Size: intPtr(4096)},
			},
			wantField: "customization.size",
			wantMsg:   "must be less than or equal to 2048",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := details(t, v.Validate(tt.req))
			assert.Equal(t, tt.wantMsg, fields[tt.wantField], "fields: %v", fields)
		})
	}
}

func TestValidator_ValidateContent(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		typ       domain.ContentType
		raw       string
		wantField string
	}{
		{"url string", domain.ContentURL, `"https://example.com/menu"`, ""},
		{"url object", domain.ContentURL, `{"url":"http://example.com"}`, ""},
		{"url idn host", domain.ContentURL, `"https://bücher.example/"`, ""},
		{"url ip host", domain.ContentURL, `"http://192.168.1.10:8080/x"`, ""},
		{"url missing scheme", domain.ContentURL, `"example.com"`, "content.url"},
		{"url ftp", domain.ContentURL, `"ftp://example.com"`, "content.url"},
		{"url bad host", domain.ContentURL, `"https://exa mple.com"`, "content.url"},
		{"text", domain.ContentText, `"hello"`, ""},
		{"file", domain.ContentFile, `{"name":"menu.pdf"}`, ""},
		{"empty string", domain.ContentText, `"  "`, "content"},
		{"empty object", domain.ContentWiFi, `{}`, "content"},
		{"null", domain.ContentURL, `null`, "content"},
		{"wifi", domain.ContentWiFi, `{"ssid":"Cafe","password":"pw"}`, ""},
		{"wifi missing ssid", domain.ContentWiFi, `{"password":"pw"}`, "content.ssid"},
		{"wifi string", domain.ContentWiFi, `"Cafe"`, "content.ssid"},
		{"vcard", domain.ContentVCard, `{"name":"Ada","email":"ada@example.com"}`, ""},
		{"vcard missing name", domain.ContentVCard, `{"phone":"123"}`, "content.name"},
		{"vcard bad email", domain.ContentVCard, `{"name":"Ada","email":"nope"}`, "content.email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateContent(tt.typ, json.RawMessage(tt.raw))
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			fields := details(t, err)
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestCheckURL(t *testing.T) {
	assert.NoError(t, validation.CheckURL("https://[::1]:8443/path"))
	assert.NoError(t, validation.CheckURL(" https://example.com "))

	err := validation.CheckURL("https://")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "host"))
}
