package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/search"
	"github.com/scanlytics/scanlytics-server/internal/store"
)

// reindexPageSize is how many codes ReindexAll reads per catalog page.
const reindexPageSize = 500

// SearchService keeps the full-text index in step with the catalog and runs
// owner-scoped queries against it.
type SearchService struct {
	index   *search.SearchIndex
	catalog store.Catalog
	logger  *slog.Logger
}

var _ store.Indexer = (*SearchService)(nil)

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, catalog store.Catalog, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchService{
		index:   index,
		catalog: catalog,
		logger:  logger,
	}
}

// Search runs a query over the caller's codes.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexQRCode indexes or replaces one code.
func (s *SearchService) IndexQRCode(_ context.Context, code *domain.QRCode) error {
	if err := s.index.IndexDocument(search.QRCodeToDocument(code)); err != nil {
		return fmt.Errorf("index qr code: %w", err)
	}
	s.logger.Debug("indexed qr code", "id", code.ID, "title", code.Title)
	return nil
}

// DeleteQRCode removes a code from the index.
func (s *SearchService) DeleteQRCode(_ context.Context, codeID string) error {
	return s.index.DeleteDocument(codeID)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// EnsureIndexed rebuilds the index when it is empty but the catalog is not,
// e.g. after the index directory was removed.
func (s *SearchService) EnsureIndexed(ctx context.Context) error {
	docs, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if docs > 0 {
		return nil
	}

	codes, err := s.catalog.CountQRCodes(ctx, store.QRCodeFilter{})
	if err != nil {
		return fmt.Errorf("count qr codes: %w", err)
	}
	if codes == 0 {
		return nil
	}
	return s.ReindexAll(ctx)
}

// ReindexAll drops the index and indexes every code in the catalog.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	s.logger.Info("starting full reindex")

	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	indexed := 0
	for offset := 0; ; offset += reindexPageSize {
		codes, err := s.catalog.ListQRCodes(ctx, store.QRCodeFilter{}, store.ListOptions{
			Limit:  reindexPageSize,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("list qr codes: %w", err)
		}
		if len(codes) == 0 {
			break
		}

		docs := make([]*search.QRDocument, 0, len(codes))
		for _, code := range codes {
			docs = append(docs, search.QRCodeToDocument(code))
		}
		if err := s.index.IndexDocuments(docs); err != nil {
			return fmt.Errorf("index qr codes: %w", err)
		}
		indexed += len(docs)

		if len(codes) < reindexPageSize {
			break
		}
	}

	total, _ := s.index.DocumentCount() //nolint:errcheck // Count is informational.
	s.logger.Info("full reindex complete", "indexed", indexed, "total_documents", total)
	return nil
}
