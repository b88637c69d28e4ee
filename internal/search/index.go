package search

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

const (
	indexDir    = "search.bleve"
	versionFile = "search.version"
	batchSize   = 500
)

// mappingVersion is bumped whenever buildIndexMapping changes; a mismatch
// on startup drops and recreates the index.
const mappingVersion = "1"

// SearchIndex is a Bleve index of QR documents, safe for concurrent use.
// Rebuild swaps the underlying handle, so every method holds mu.
type SearchIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	dir    string
	path   string
	logger *slog.Logger
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Uses discard if nil
}

// NewSearchIndex opens the index under DataPath. A missing index is
// created; one that is unreadable or stamped with another mapping version is
// discarded and created again, to be refilled by the caller.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	s := &SearchIndex{
		dir:    opts.DataPath,
		path:   filepath.Join(opts.DataPath, indexDir),
		logger: opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	index, err := s.openCurrent()
	if err != nil {
		s.logger.Info("recreating search index", "path", s.path, "reason", err.Error())
		if index, err = s.create(); err != nil {
			return nil, err
		}
	} else {
		s.logger.Info("opened existing search index", "path", s.path)
	}

	s.index = index
	return s, nil
}

// openCurrent opens the on-disk index if it exists and matches
// mappingVersion.
func (s *SearchIndex) openCurrent() (bleve.Index, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("no index on disk")
		}
		return nil, err
	}

	stamp, err := os.ReadFile(filepath.Join(s.dir, versionFile))
	if err != nil {
		return nil, fmt.Errorf("read mapping version: %w", err)
	}
	if v := string(bytes.TrimSpace(stamp)); v != mappingVersion {
		return nil, fmt.Errorf("mapping version %q, want %q", v, mappingVersion)
	}

	index, err := bleve.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return index, nil
}

// create replaces whatever is at s.path with an empty index and stamps it.
func (s *SearchIndex) create() (bleve.Index, error) {
	if err := os.RemoveAll(s.path); err != nil {
		return nil, fmt.Errorf("remove old index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, versionFile), []byte(mappingVersion), 0o644); err != nil {
		s.logger.Warn("failed to write search version file", "error", err)
	}
	s.logger.Info("created search index", "path", s.path, "mapping_version", mappingVersion)
	return index, nil
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument adds doc, replacing any earlier version.
func (s *SearchIndex) IndexDocument(doc *QRDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments adds docs in fixed-size batches.
func (s *SearchIndex) IndexDocuments(docs []*QRDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for start := 0; start < len(docs); start += batchSize {
		chunk := docs[start:min(start+batchSize, len(docs))]

		b := s.index.NewBatch()
		for _, doc := range chunk {
			if err := b.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(b); err != nil {
			return fmt.Errorf("commit batch at %d: %w", start, err)
		}
	}
	return nil
}

// DeleteDocument removes the document with id. Unknown ids are ignored.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild discards every document, leaving an empty index. Other calls
// wait until it finishes.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	index, err := s.create()
	if err != nil {
		return err
	}
	s.index = index
	return nil
}
