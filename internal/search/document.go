// Package search provides full-text search over a user's QR codes using Bleve.
package search

import (
	"github.com/scanlytics/scanlytics-server/internal/domain"
)

// QRDocument is the indexed form of a QR code.
type QRDocument struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *QRDocument) ToMap() map[string]any {
	return map[string]any{
		"id":         d.ID,
		"user_id":    d.UserID,
		"title":      d.Title,
		"type":       d.Type,
		"content":    d.Content,
		"is_active":  d.IsActive,
		"created_at": d.CreatedAt,
	}
}

// QRCodeToDocument builds the search document for a code. The content field
// holds the encoded payload so URLs, SSIDs and contact names are searchable.
func QRCodeToDocument(q *domain.QRCode) *QRDocument {
	content, err := domain.EncodeContent(q.Type, q.Content)
	if err != nil {
		content = string(q.Content)
	}
	return &QRDocument{
		ID:        q.ID,
		UserID:    q.UserID,
		Title:     q.Title,
		Type:      string(q.Type),
		Content:   content,
		IsActive:  q.IsActive,
		CreatedAt: q.CreatedAt.UnixMilli(),
	}
}
