package domain

import "time"

// Device is the coarse device class derived from a user agent.
type Device string

// Device classes. Unrecognized agents are DeviceDesktop.
const (
	DeviceMobile  Device = "mobile"
	DeviceTablet  Device = "tablet"
	DeviceDesktop Device = "desktop"
)

// UnknownFamily is recorded when no browser or OS token is recognized.
const UnknownFamily = "Unknown"

// Location is the geo-IP derived origin of a scan. Every field is optional.
type Location struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// IsZero reports whether the lookup produced nothing.
func (l Location) IsZero() bool {
	return l == Location{}
}

// ScanEvent is one immutable record of a QR code being scanned.
type ScanEvent struct {
	ID        string    `json:"_id"`
	QRCodeID  string    `json:"qrCode"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Location  Location  `json:"location"`
	Device    Device    `json:"device"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	CreatedAt time.Time `json:"createdAt"`
}
