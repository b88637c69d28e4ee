package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// URLContent is the object form of a url payload.
type URLContent struct {
	URL string `json:"url" validate:"required,max=4096"`
}

// TextContent is the object form of a text payload.
type TextContent struct {
	Text string `json:"text" validate:"required,max=4096"`
}

// WiFiContent describes network credentials.
type WiFiContent struct {
	Security string `json:"security,omitempty" validate:"max=16"`
	SSID     string `json:"ssid" validate:"required,max=64"`
	Password string `json:"password,omitempty" validate:"max=128"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// VCardContent describes a contact card.
type VCardContent struct {
	Name         string `json:"name" validate:"required,max=256"`
	Organization string `json:"organization,omitempty" validate:"max=256"`
	Phone        string `json:"phone,omitempty" validate:"max=64"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Website      string `json:"website,omitempty" validate:"max=2048"`
}

// IsEmptyContent reports whether a payload counts as missing: absent, null,
// an empty string, an empty object or an empty array.
func IsEmptyContent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "{}", "[]":
		return true
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return strings.TrimSpace(s) == ""
		}
	}
	return false
}

// asString returns the payload as a Go string when it is a JSON string.
func asString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

// objectField returns a string field of a JSON object payload.
func objectField(raw json.RawMessage, field string) string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if v, ok := obj[field].(string); ok {
		return v
	}
	return ""
}

// DecodeContent unmarshals an object payload into dst.
func DecodeContent(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	return nil
}

// EncodeContent renders the string that is embedded into the QR symbol.
//
// url and text accept either a bare string or an object with a url/text
// field. wifi produces a WIFI: URI, vcard a vCard 3.0 block, and anything
// else the string itself or its JSON text.
func EncodeContent(t ContentType, raw json.RawMessage) (string, error) {
	switch t {
	case ContentURL:
		return stringOrField(raw, "url"), nil

	case ContentText:
		return stringOrField(raw, "text"), nil

	case ContentWiFi:
		var w WiFiContent
		if err := DecodeContent(raw, &w); err != nil {
			return "", err
		}
		security := w.Security
		if security == "" {
			security = "WPA"
		}
		return fmt.Sprintf("WIFI:T:%s;S:%s;P:%s;H:%s;;",
			security, w.SSID, w.Password, strconv.FormatBool(w.Hidden)), nil

	case ContentVCard:
		var v VCardContent
		if err := DecodeContent(raw, &v); err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString("BEGIN:VCARD\nVERSION:3.0\n")
		b.WriteString("FN:" + v.Name + "\n")
		b.WriteString("ORG:" + v.Organization + "\n")
		b.WriteString("TEL:" + v.Phone + "\n")
		b.WriteString("EMAIL:" + v.Email + "\n")
		b.WriteString("URL:" + v.Website + "\n")
		b.WriteString("END:VCARD")
		return b.String(), nil

	default:
		if s, ok := asString(raw); ok {
			return s, nil
		}
		return string(bytes.TrimSpace(raw)), nil
	}
}

// stringOrField implements `content.<field> || content`.
func stringOrField(raw json.RawMessage, field string) string {
	if s, ok := asString(raw); ok {
		return s
	}
	if v := objectField(raw, field); v != "" {
		return v
	}
	return string(bytes.TrimSpace(raw))
}

// ContentTarget returns the URL a url-type payload points at, or "".
func ContentTarget(raw json.RawMessage) string {
	if s, ok := asString(raw); ok {
		return s
	}
	return objectField(raw, "url")
}

// ContentEqual compares two payloads by their canonical JSON form.
func ContentEqual(a, b json.RawMessage) bool {
	return bytes.Equal(canonical(a), canonical(b))
}

func canonical(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return bytes.TrimSpace(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return bytes.TrimSpace(raw)
	}
	return out
}
