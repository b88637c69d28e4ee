package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/auth"
	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/qrimage"
	"github.com/scanlytics/scanlytics-server/internal/ratelimit"
	"github.com/scanlytics/scanlytics-server/internal/search"
	"github.com/scanlytics/scanlytics-server/internal/service"
	"github.com/scanlytics/scanlytics-server/internal/sse"
	"github.com/scanlytics/scanlytics-server/internal/store/sqlite"
	"github.com/scanlytics/scanlytics-server/internal/validation"
)

const testPublicURL = "https://qr.test"

// testEnvelope mirrors both envelope shapes for decoding in tests.
type testEnvelope[T any] struct {
	Version int               `json:"v"`
	Success bool              `json:"success"`
	Data    T                 `json:"data"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decode[T any](t *testing.T, body *bytes.Buffer) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body.Bytes(), &env), "body: %s", body.String())
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

type testServer struct {
	*Server
	api    humatest.TestAPI
	tokens *auth.TokenService
	db     *sqlite.Store
}

type serverOption func(*Options)

func withScanLimit(burst int) serverOption {
	return func(o *Options) {
		o.ScanLimiter = ratelimit.New(0.001, burst)
	}
}

func withMetrics() serverOption {
	return func(o *Options) { o.Metrics = true }
}

// setupTestServer wires the real services over a temporary SQLite file and
// Bleve index.
func setupTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	searchService := service.NewSearchService(index, db, nil)
	db.SetIndexer(searchService)

	tokens, err := auth.NewTokenServiceFromKey(bytes.Repeat([]byte{7}, 32), time.Hour)
	require.NoError(t, err)

	manager := sse.NewManager(nil)

	services := &Services{
		QRCodes:   service.NewQRCodeService(db, qrimage.NewRenderer(), validation.New(), manager, testPublicURL, nil),
		Analytics: service.NewAnalyticsService(db, db, nil),
		Tracker:   service.NewScanTracker(db, db, nil, manager, nil),
		Search:    searchService,
	}

	options := Options{CORSOrigins: []string{"http://localhost:3000"}}
	for _, opt := range opts {
		opt(&options)
	}
	if options.ScanLimiter != nil {
		t.Cleanup(options.ScanLimiter.Stop)
	}

	s := NewServer(db, services, tokens, manager, options, nil)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		tokens: tokens,
		db:     db,
	}
}

// bearer returns an Authorization header argument for humatest.
func (ts *testServer) bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.GenerateAccessToken(userID)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

// generate creates a code through the API and returns it.
func (ts *testServer) generate(t *testing.T, userID string, body map[string]any) *domain.QRCode {
	t.Helper()
	resp := ts.api.Post("/api/qr/generate", ts.bearer(t, userID), body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	env := decode[QRCodeResponse](t, resp.Body)
	require.NotNil(t, env.Data.QRCode)
	return env.Data.QRCode
}

func urlCode(title, target string) map[string]any {
	return map[string]any{
		"title":   title,
		"type":    "url",
		"content": map[string]string{"url": target},
	}
}
