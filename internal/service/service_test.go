package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/geoip"
	"github.com/scanlytics/scanlytics-server/internal/id"
	"github.com/scanlytics/scanlytics-server/internal/qrimage"
	"github.com/scanlytics/scanlytics-server/internal/sse"
	"github.com/scanlytics/scanlytics-server/internal/store/sqlite"
	"github.com/scanlytics/scanlytics-server/internal/validation"
)

const testPublicURL = "https://qr.test"

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixedResolver struct{ loc domain.Location }

func (f fixedResolver) Lookup(string) domain.Location { return f.loc }

var _ geoip.Resolver = fixedResolver{}

// testEnv wires the services over a real SQLite file with a pinned clock.
type testEnv struct {
	store     *sqlite.Store
	emitter   *recordingEmitter
	analytics *AnalyticsService
	qrcodes   *QRCodeService
	tracker   *ScanTracker
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	env := &testEnv{
		store:   s,
		emitter: &recordingEmitter{},
		now:     time.Now().UTC().Truncate(time.Second),
	}
	clock := func() time.Time { return env.now }

	env.analytics = NewAnalyticsService(s, s, nil)
	env.analytics.now = clock

	env.qrcodes = NewQRCodeService(s, qrimage.NewRenderer(), validation.New(), env.emitter, testPublicURL, nil)
	env.qrcodes.now = clock

	env.tracker = NewScanTracker(s, s, fixedResolver{loc: domain.Location{Country: "DE", City: "Berlin"}}, env.emitter, nil)
	env.tracker.now = clock

	return env
}

// addCode stores a code owned by userID without going through the renderer.
func (e *testEnv) addCode(t *testing.T, codeID, userID, title string) *domain.QRCode {
	t.Helper()
	code := &domain.QRCode{
		ID:            codeID,
		UserID:        userID,
		Title:         title,
		Type:          domain.ContentURL,
		Content:       json.RawMessage(`"https://example.com/` + codeID + `"`),
		Image:         qrimage.DataURLPrefix + "AAAA",
		Customization: domain.DefaultCustomization(),
		IsActive:      true,
		CreatedAt:     e.now,
		UpdatedAt:     e.now,
	}
	require.NoError(t, e.store.CreateQRCode(context.Background(), code))
	return code
}

// addScan stores one event at age before the pinned clock.
func (e *testEnv) addScan(t *testing.T, codeID string, age time.Duration, device domain.Device, browser, country string) {
	t.Helper()
	eventID, err := id.EventID()
	require.NoError(t, err)
	require.NoError(t, e.store.CreateScanEvent(context.Background(), &domain.ScanEvent{
		ID:        eventID,
		QRCodeID:  codeID,
		IPAddress: "203.0.113.9",
		UserAgent: "test",
		Location:  domain.Location{Country: country},
		Device:    device,
		Browser:   browser,
		OS:        domain.UnknownFamily,
		CreatedAt: e.now.Add(-age),
	}))
}

const day = 24 * time.Hour

func ptr[T any](v T) *T { return &v }
