package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

const androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Mobile Safari/537.36"

func TestTrackScan(t *testing.T) {
	ts := setupTestServer(t)
	code := ts.generate(t, "u1", urlCode("Menu", "https://example.com/menu"))

	resp := ts.api.Post("/api/qr/"+code.ID+"/scan", "User-Agent: "+androidUA)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Scan tracked", decode[MessageResponse](t, resp.Body).Data.Message)

	resp = ts.api.Post("/api/qr/qr-missing/scan", "User-Agent: "+androidUA)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "QR Code not found", decode[any](t, resp.Body).Message)

	resp = ts.api.Get("/api/analytics/qr/"+code.ID, ts.bearer(t, "u1"))
	require.Equal(t, http.StatusOK, resp.Code)
	detail := decode[domain.QRCodeDetail](t, resp.Body).Data
	assert.Equal(t, int64(1), detail.QRCode.ScanCount)
	require.Len(t, detail.Scans, 1)
	assert.Equal(t, domain.DeviceMobile, detail.Scans[0].Device)
	assert.Equal(t, "Chrome", detail.Scans[0].Browser)
	assert.Equal(t, "Linux", detail.Scans[0].OS)
	assert.Equal(t, "192.0.2.1", detail.Scans[0].IPAddress)
}

func TestTrackScan_ForwardedFor(t *testing.T) {
	ts := setupTestServer(t)
	code := ts.generate(t, "u1", urlCode("Menu", "https://example.com/menu"))

	resp := ts.api.Post("/api/qr/"+code.ID+"/scan", "X-Forwarded-For: 203.0.113.50")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/analytics/qr/"+code.ID, ts.bearer(t, "u1"))
	detail := decode[domain.QRCodeDetail](t, resp.Body).Data
	require.Len(t, detail.Scans, 1)
	assert.Equal(t, "203.0.113.50", detail.Scans[0].IPAddress)
	assert.Equal(t, domain.DeviceDesktop, detail.Scans[0].Device)
}

func TestTrackScan_RateLimited(t *testing.T) {
	ts := setupTestServer(t, withScanLimit(2))
	code := ts.generate(t, "u1", urlCode("Menu", "https://example.com/menu"))

	for range 2 {
		resp := ts.api.Post("/api/qr/" + code.ID + "/scan")
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Post("/api/qr/" + code.ID + "/scan")
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))
	env := decode[any](t, resp.Body)
	assert.Equal(t, "RATE_LIMITED", env.Code)

	// Other clients keep their own bucket.
	resp = ts.api.Post("/api/qr/"+code.ID+"/scan", "X-Forwarded-For: 198.51.100.2")
	assert.Equal(t, http.StatusOK, resp.Code)

	// Authenticated routes are not limited.
	resp = ts.api.Get("/api/analytics/dashboard", ts.bearer(t, "u1"))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestFollowShortLink(t *testing.T) {
	ts := setupTestServer(t)
	code := ts.generate(t, "u1", map[string]any{
		"title":     "Campaign",
		"type":      "url",
		"content":   "https://example.com/spring",
		"isDynamic": true,
	})
	require.NotEmpty(t, code.ShortURL)

	resp := ts.api.Get("/s/"+code.ShortURL, "User-Agent: "+androidUA)
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())
	assert.Equal(t, "https://example.com/spring", resp.Header().Get("Location"))
	assert.Equal(t, "no-store", resp.Header().Get("Cache-Control"))

	resp = ts.api.Get("/s/unknown1")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Link not found", decode[any](t, resp.Body).Message)

	resp = ts.api.Get("/api/analytics/dashboard", ts.bearer(t, "u1"))
	stats := decode[DashboardResponse](t, resp.Body).Data.Stats
	assert.Equal(t, int64(1), stats.TotalScans)
}
