// Package store defines the persistence contract for the QR code catalog and
// the scan event log.
package store

import (
	"context"
	"time"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

// QRCodeFilter selects catalog rows. Zero fields do not filter.
type QRCodeFilter struct {
	UserID string
	IDs    []string
	// Search is a case-insensitive substring match on the title.
	Search string
	Active *bool
}

// ListOptions paginates ListQRCodes. Rows are returned newest first.
type ListOptions struct {
	Limit  int
	Offset int
}

// ScanFilter selects scan events. An empty QRCodeIDs slice matches nothing.
type ScanFilter struct {
	QRCodeIDs []string
	// Since is inclusive. The zero value means no lower bound.
	Since time.Time
}

// ScanQuery returns raw events, newest first.
type ScanQuery struct {
	Filter ScanFilter
	Limit  int
	Offset int
}

// Dimension is a grouping key for scan aggregation.
type Dimension string

// Supported grouping dimensions.
const (
	ByDay     Dimension = "day"
	ByDevice  Dimension = "device"
	ByCountry Dimension = "country"
	ByBrowser Dimension = "browser"
	ByQRCode  Dimension = "qr_code"
)

// GroupOrder orders grouped results.
type GroupOrder int

// Group orderings. Ties and unordered groups are sorted by key ascending so
// results are deterministic.
const (
	OrderByKey GroupOrder = iota
	OrderByCountDesc
)

// GroupQuery is a match -> group -> sort -> limit pipeline over scan events.
type GroupQuery struct {
	Filter ScanFilter
	By     Dimension
	Order  GroupOrder
	// Limit of 0 returns every group.
	Limit int
}

// Catalog persists QR code definitions.
type Catalog interface {
	CreateQRCode(ctx context.Context, code *domain.QRCode) error
	GetQRCode(ctx context.Context, id string) (*domain.QRCode, error)
	GetQRCodeByShortURL(ctx context.Context, token string) (*domain.QRCode, error)
	// GetQRCodesByIDs returns the codes that exist, keyed by id. Missing ids are omitted.
	GetQRCodesByIDs(ctx context.Context, ids []string) (map[string]*domain.QRCode, error)
	ListQRCodes(ctx context.Context, filter QRCodeFilter, opts ListOptions) ([]*domain.QRCode, error)
	CountQRCodes(ctx context.Context, filter QRCodeFilter) (int64, error)
	QRCodeIDs(ctx context.Context, filter QRCodeFilter) ([]string, error)
	UpdateQRCode(ctx context.Context, code *domain.QRCode) error
	// DeleteQRCode removes the code and its scan events, returning the number of events removed.
	DeleteQRCode(ctx context.Context, id string) (int64, error)
	IncrementScanCount(ctx context.Context, id string) error
}

// EventLog persists and aggregates scan events.
type EventLog interface {
	CreateScanEvent(ctx context.Context, event *domain.ScanEvent) error
	CountScans(ctx context.Context, filter ScanFilter) (int64, error)
	FindScans(ctx context.Context, query ScanQuery) ([]*domain.ScanEvent, error)
	GroupScans(ctx context.Context, query GroupQuery) ([]domain.Bucket, error)
}

// Store is the full persistence surface.
type Store interface {
	Catalog
	EventLog
	Ping(ctx context.Context) error
	Close() error
}

// Indexer is notified of catalog changes so a search index can follow them.
type Indexer interface {
	IndexQRCode(ctx context.Context, code *domain.QRCode) error
	DeleteQRCode(ctx context.Context, id string) error
}

type noopIndexer struct{}

func (noopIndexer) IndexQRCode(context.Context, *domain.QRCode) error { return nil }
func (noopIndexer) DeleteQRCode(context.Context, string) error        { return nil }

// NewNoopIndexer returns an Indexer that does nothing.
func NewNoopIndexer() Indexer {
	return noopIndexer{}
}
