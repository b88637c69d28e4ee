package search

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

func setupTestIndex(t *testing.T) *SearchIndex {
	t.Helper()

	index, err := NewSearchIndex(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index
}

func doc(id, user, title, typ, content string, created int64) *QRDocument {
	return &QRDocument{ID: id, UserID: user, Title: title, Type: typ, Content: content, IsActive: true, CreatedAt: created}
}

func hitIDs(res *SearchResult) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestNewSearchIndex(t *testing.T) {
	index := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestNewSearchIndex_ReopensExisting(t *testing.T) {
	dir := t.TempDir()

	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexDocument(doc("qr-1", "u", "Menu", "url", "https://example.com", 1)))
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearch_ScopedToOwner(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexDocuments([]*QRDocument{
		doc("qr-a1", "user-a", "Restaurant Menu", "url", "https://menu.example.com", 1),
		doc("qr-a2", "user-a", "Office WiFi", "wifi", "WIFI:T:WPA;S:office;P:pw;H:false;;", 2),
		doc("qr-b1", "user-b", "Restaurant Menu", "url", "https://other.example.com", 3),
	}))

	res, err := index.Search(ctx, SearchParams{UserID: "user-a", Query: "menu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"qr-a1"}, hitIDs(res))
	assert.Equal(t, "Restaurant Menu", res.Hits[0].Title)
	assert.Equal(t, "url", res.Hits[0].Type)

	all, err := index.Search(ctx, SearchParams{UserID: "user-a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"qr-a2", "qr-a1"}, hitIDs(all), "match-all sorts newest first")

	_, err = index.Search(ctx, SearchParams{Query: "menu"})
	assert.Error(t, err)
}

func TestSearch_MatchesStemmedTitleAndContent(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.IndexDocuments([]*QRDocument{
		doc("qr-1", "u", "Running shoes promo", "url", "https://shop.example.com/shoes", 1),
		doc("qr-2", "u", "Conference badge", "vcard", "BEGIN:VCARD\nFN:Ada Lovelace\nEND:VCARD", 2),
	}))

	res, err := index.Search(ctx, SearchParams{UserID: "u", Query: "run"})
	require.NoError(t, err)
	assert.Contains(t, hitIDs(res), "qr-1")

	res, err = index.Search(ctx, SearchParams{UserID: "u", Query: "lovelace"})
	require.NoError(t, err)
	assert.Equal(t, []string{"qr-2"}, hitIDs(res))
}

func TestSearch_TypeAndActiveFilters(t *testing.T) {
	index := setupTestIndex(t)
	ctx := context.Background()

	inactive := doc("qr-3", "u", "Old flyer", "text", "hello", 3)
	inactive.IsActive = false
	require.NoError(t, index.IndexDocuments([]*QRDocument{
		doc("qr-1", "u", "New flyer", "url", "https://example.com", 1),
		doc("qr-2", "u", "Text flyer", "text", "hi", 2),
		inactive,
	}))

	res, err := index.Search(ctx, SearchParams{UserID: "u", Query: "flyer", Types: []string{"text"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"qr-2", "qr-3"}, hitIDs(res))

	active := true
	res, err = index.Search(ctx, SearchParams{UserID: "u", Query: "flyer", Types: []string{"text"}, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, []string{"qr-2"}, hitIDs(res))
}

func TestSearchIndex_DeleteAndRebuild(t *testing.T) {
	index := setupTestIndex(t)

	require.NoError(t, index.IndexDocument(doc("qr-1", "u", "A", "url", "x", 1)))
	require.NoError(t, index.IndexDocument(doc("qr-2", "u", "B", "url", "y", 2)))
	require.NoError(t, index.DeleteDocument("qr-1"))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, index.Rebuild())
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestQRCodeToDocument_EncodesContent(t *testing.T) {
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	q := &domain.QRCode{
		ID:        "qr-1",
		UserID:    "u",
		Title:     "Guest WiFi",
		Type:      domain.ContentWiFi,
		Content:   json.RawMessage(`{"ssid":"guest","password":"pw"}`),
		IsActive:  true,
		CreatedAt: created,
	}

	d := QRCodeToDocument(q)
	assert.Equal(t, "WIFI:T:WPA;S:guest;P:pw;H:false;;", d.Content)
	assert.Equal(t, created.UnixMilli(), d.CreatedAt)
	assert.Equal(t, "wifi", d.Type)
}
