// Package sse streams live scan activity to dashboard clients over Server-Sent Events.
package sse

import (
	"time"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventScanRecorded is sent to a code's owner when it is scanned.
	EventScanRecorded EventType = "scan.recorded"

	// EventQRCodeCreated is sent to the owner after a code is generated.
	EventQRCodeCreated EventType = "qr_code.created"
	// EventQRCodeUpdated is sent to the owner after a code is edited.
	EventQRCodeUpdated EventType = "qr_code.updated"
	// EventQRCodeDeleted is sent to the owner after a code is deleted.
	EventQRCodeDeleted EventType = "qr_code.deleted"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one owner. Empty broadcasts to everyone.
	UserID string `json:"-"`
}

// ScanRecordedEventData is the payload of scan.recorded.
type ScanRecordedEventData struct {
	QRCodeID  string          `json:"qrCode"`
	Title     string          `json:"title"`
	ScanCount int64           `json:"scanCount"`
	Device    domain.Device   `json:"device"`
	Browser   string          `json:"browser"`
	OS        string          `json:"os"`
	Location  domain.Location `json:"location"`
	ScannedAt time.Time       `json:"scannedAt"`
}

// QRCodeEventData is the payload of qr_code.created and qr_code.updated.
// The image is omitted to keep events small.
type QRCodeEventData struct {
	ID       string             `json:"_id"`
	Title    string             `json:"title"`
	Type     domain.ContentType `json:"type"`
	IsActive bool               `json:"isActive"`
}

// QRCodeDeletedEventData is the payload of qr_code.deleted.
type QRCodeDeletedEventData struct {
	ID           string    `json:"_id"`
	ScansRemoved int64     `json:"scansRemoved"`
	DeletedAt    time.Time `json:"deletedAt"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"serverTime"`
}

// NewScanRecordedEvent builds the owner-scoped event for a tracked scan.
func NewScanRecordedEvent(code *domain.QRCode, scan *domain.ScanEvent) Event {
	return Event{
		Type:      EventScanRecorded,
		Timestamp: time.Now(),
		UserID:    code.UserID,
		Data: ScanRecordedEventData{
			QRCodeID:  code.ID,
			Title:     code.Title,
			ScanCount: code.ScanCount,
			Device:    scan.Device,
			Browser:   scan.Browser,
			OS:        scan.OS,
			Location:  scan.Location,
			ScannedAt: scan.CreatedAt,
		},
	}
}

func qrCodeEvent(t EventType, code *domain.QRCode) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		UserID:    code.UserID,
		Data: QRCodeEventData{
			ID:       code.ID,
			Title:    code.Title,
			Type:     code.Type,
			IsActive: code.IsActive,
		},
	}
}

// NewQRCodeCreatedEvent builds the event for a new code.
func NewQRCodeCreatedEvent(code *domain.QRCode) Event {
	return qrCodeEvent(EventQRCodeCreated, code)
}

// NewQRCodeUpdatedEvent builds the event for an edited code.
func NewQRCodeUpdatedEvent(code *domain.QRCode) Event {
	return qrCodeEvent(EventQRCodeUpdated, code)
}

// NewQRCodeDeletedEvent builds the event for a deleted code.
func NewQRCodeDeletedEvent(userID, codeID string, scansRemoved int64) Event {
	now := time.Now()
	return Event{
		Type:      EventQRCodeDeleted,
		Timestamp: now,
		UserID:    userID,
		Data: QRCodeDeletedEventData{
			ID:           codeID,
			ScansRemoved: scansRemoved,
			DeletedAt:    now,
		},
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}

// deliverableTo reports whether a client streaming for userID should see e.
func (e Event) deliverableTo(userID string) bool {
	return e.UserID == "" || e.UserID == userID
}
