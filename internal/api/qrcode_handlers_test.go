package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/qrimage"
	"github.com/scanlytics/scanlytics-server/internal/service"
)

func TestAuth_RejectsBadHeaders(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name    string
		args    []any
		message string
	}{
		{"missing", nil, "Missing authorization header"},
		{"wrong scheme", []any{"Authorization: Token abc"}, "Invalid authorization header format"},
		{"bad token", []any{"Authorization: Bearer not-a-token"}, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get("/api/qr", tt.args...)
			assert.Equal(t, http.StatusUnauthorized, resp.Code)

			env := decode[any](t, resp.Body)
			assert.False(t, env.Success)
			assert.Equal(t, "UNAUTHORIZED", env.Code)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestGenerateQRCode(t *testing.T) {
	ts := setupTestServer(t)

	code := ts.generate(t, "u1", map[string]any{
		"title":         "Menu",
		"type":          "url",
		"content":       map[string]string{"url": "https://example.com/menu"},
		"customization": map[string]any{"foregroundColor": "#112233", "size": 300},
	})

	assert.Equal(t, "u1", code.UserID)
	assert.Equal(t, "Menu", code.Title)
	assert.True(t, strings.HasPrefix(code.Image, qrimage.DataURLPrefix))
	assert.Equal(t, "#112233", code.Customization.ForegroundColor)
	assert.Equal(t, 300, code.Customization.Size)
	assert.True(t, code.IsActive)
	assert.Zero(t, code.ScanCount)
}

func TestGenerateQRCode_Validation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/qr/generate", ts.bearer(t, "u1"), map[string]any{"type": "barcode"})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	env := decode[any](t, resp.Body)
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Equal(t, "Title is required", env.Details["title"])
	assert.Equal(t, "Invalid QR type", env.Details["type"])
	assert.Equal(t, "Content is required", env.Details["content"])

	resp = ts.api.Post("/api/qr/generate", ts.bearer(t, "u1"), urlCode("Bad", "javascript:alert(1)"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decode[any](t, resp.Body).Details, "content.url")

	resp = ts.api.Post("/api/qr/generate", ts.bearer(t, "u1"), strings.NewReader(`{"title":`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decode[any](t, resp.Body).Code)
}

func TestQRCode_OwnershipAndLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	code := ts.generate(t, "u1", urlCode("Menu", "https://example.com/menu"))

	resp := ts.api.Get("/api/qr/"+code.ID, ts.bearer(t, "u2"))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "Access denied", decode[any](t, resp.Body).Message)

	resp = ts.api.Get("/api/qr/qr-missing", ts.bearer(t, "u1"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	env := decode[any](t, resp.Body)
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.Equal(t, "QR Code not found", env.Message)

	resp = ts.api.Put("/api/qr/"+code.ID, ts.bearer(t, "u1"), map[string]any{
		"title":    "Dinner menu",
		"isActive": false,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[QRCodeResponse](t, resp.Body).Data.QRCode
	assert.Equal(t, "Dinner menu", updated.Title)
	assert.False(t, updated.IsActive)
	assert.Equal(t, code.Image, updated.Image)

	resp = ts.api.Delete("/api/qr/"+code.ID, ts.bearer(t, "u2"))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Delete("/api/qr/"+code.ID, ts.bearer(t, "u1"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "QR Code deleted successfully", decode[MessageResponse](t, resp.Body).Data.Message)

	resp = ts.api.Get("/api/qr/"+code.ID, ts.bearer(t, "u1"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListQRCodes(t *testing.T) {
	ts := setupTestServer(t)
	for _, title := range []string{"Menu", "Poster", "Lunch Menu"} {
		ts.generate(t, "u1", urlCode(title, "https://example.com/"+strings.ToLower(title[:1])))
	}
	ts.generate(t, "u2", urlCode("Menu", "https://example.com/other"))

	resp := ts.api.Get("/api/qr?page=1&limit=2", ts.bearer(t, "u1"))
	require.Equal(t, http.StatusOK, resp.Code)
	page := decode[service.ListResult](t, resp.Body).Data
	assert.Len(t, page.QRCodes, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)

	resp = ts.api.Get("/api/qr?search=MENU", ts.bearer(t, "u1"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, int64(2), decode[service.ListResult](t, resp.Body).Data.Total)
}

func TestPreviewQRCode(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/qr/preview", ts.bearer(t, "u1"), map[string]any{
		"type":    "text",
		"content": "hello",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, strings.HasPrefix(decode[PreviewResponse](t, resp.Body).Data.Image, qrimage.DataURLPrefix))

	resp = ts.api.Get("/api/qr", ts.bearer(t, "u1"))
	assert.Zero(t, decode[service.ListResult](t, resp.Body).Data.Total)
}

func TestSearchQRCodes(t *testing.T) {
	ts := setupTestServer(t)
	ts.generate(t, "u1", urlCode("Spring campaign", "https://example.com/spring"))
	ts.generate(t, "u1", urlCode("Winter sale", "https://example.com/winter"))
	ts.generate(t, "u2", urlCode("Spring fair", "https://example.com/fair"))

	resp := ts.api.Get("/api/qr/search?q=spring", ts.bearer(t, "u1"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	type hit struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	}
	env := decode[struct {
		Total uint64 `json:"total"`
		Hits  []hit  `json:"hits"`
	}](t, resp.Body)
	require.Len(t, env.Data.Hits, 1)
	assert.Equal(t, "Spring campaign", env.Data.Hits[0].Title)
}

func TestDownloadQRCode(t *testing.T) {
	ts := setupTestServer(t)
	code := ts.generate(t, "u1", urlCode("Café Menü", "https://example.com/menu"))

	resp := ts.api.Get("/api/qr/"+code.ID+"/image", ts.bearer(t, "u1"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=cafe-menu.png`, resp.Header().Get("Content-Disposition"))

	want, err := qrimage.PNGBytes(code.Image)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Body.Bytes())

	resp = ts.api.Get("/api/qr/"+code.ID+"/image", ts.bearer(t, "u2"))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}
