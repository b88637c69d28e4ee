// Package domain holds the QR code catalog and scan analytics types.
package domain

import (
	"encoding/json"
	"time"
)

// ContentType identifies how a QR code's content payload is encoded.
type ContentType string

// Supported content types.
const (
	ContentURL   ContentType = "url"
	ContentText  ContentType = "text"
	ContentWiFi  ContentType = "wifi"
	ContentVCard ContentType = "vcard"
	ContentFile  ContentType = "file"
)

// Valid reports whether t is one of the supported content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentURL, ContentText, ContentWiFi, ContentVCard, ContentFile:
		return true
	default:
		return false
	}
}

// Customization defaults.
const (
	DefaultForegroundColor = "#000000"
	DefaultBackgroundColor = "#ffffff"
	DefaultSize            = 200
	DefaultMargin          = 4
)

// Customization holds the visual options used to render a code.
type Customization struct {
	ForegroundColor string `json:"foregroundColor"`
	BackgroundColor string `json:"backgroundColor"`
	Logo            string `json:"logo"`
	Size            int    `json:"size"`
	Margin          int    `json:"margin"`
}

// DefaultCustomization returns the style applied when a request omits one.
func DefaultCustomization() Customization {
	return Customization{
		ForegroundColor: DefaultForegroundColor,
		BackgroundColor: DefaultBackgroundColor,
		Size:            DefaultSize,
		Margin:          DefaultMargin,
	}
}

// CustomizationPatch is a partial customization; nil fields keep their current value.
type CustomizationPatch struct {
	ForegroundColor *string `json:"foregroundColor,omitempty" validate:"omitempty,max=32,qrcolor"`
	BackgroundColor *string `json:"backgroundColor,omitempty" validate:"omitempty,max=32,qrcolor"`
	Logo            *string `json:"logo,omitempty" validate:"omitempty,max=2048"`
	Size            *int    `json:"size,omitempty" validate:"omitempty,gte=64,lte=2048"`
	Margin          *int    `json:"margin,omitempty" validate:"omitempty,gte=0,lte=32"`
}

// Apply returns c with the non-nil fields of p overlaid.
// Empty colors and zero sizes fall back to c, matching `value || current`.
func (c Customization) Apply(p *CustomizationPatch) Customization {
	if p == nil {
		return c
	}
	if p.ForegroundColor != nil && *p.ForegroundColor != "" {
		c.ForegroundColor = *p.ForegroundColor
	}
	if p.BackgroundColor != nil && *p.BackgroundColor != "" {
		c.BackgroundColor = *p.BackgroundColor
	}
	if p.Logo != nil {
		c.Logo = *p.Logo
	}
	if p.Size != nil && *p.Size > 0 {
		c.Size = *p.Size
	}
	if p.Margin != nil && *p.Margin > 0 {
		c.Margin = *p.Margin
	}
	return c
}

// QRCode is a stored, user-owned QR code definition.
type QRCode struct {
	ID            string          `json:"_id"`
	UserID        string          `json:"user"`
	Title         string          `json:"title"`
	Type          ContentType     `json:"type"`
	Content       json.RawMessage `json:"content"`
	Image         string          `json:"qrImage"`
	Customization Customization   `json:"customization"`
	IsDynamic     bool            `json:"isDynamic"`
	ShortURL      string          `json:"shortUrl,omitempty"`
	ScanCount     int64           `json:"scanCount"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OwnedBy reports whether userID owns the code.
func (q *QRCode) OwnedBy(userID string) bool {
	return q.UserID == userID
}

// HasShortLink reports whether the code is resolved through a short link.
func (q *QRCode) HasShortLink() bool {
	return q.IsDynamic && q.ShortURL != ""
}
