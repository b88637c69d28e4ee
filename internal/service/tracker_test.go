package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/errors"
	"github.com/scanlytics/scanlytics-server/internal/sse"
	"github.com/scanlytics/scanlytics-server/internal/store"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1"

func TestTrack_RecordsEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addCode(t, "qr-A", "u1", "Menu")

	event, err := env.tracker.Track(ctx, "qr-A", ScanSource{IP: "198.51.100.7", UserAgent: iphoneUA})
	require.NoError(t, err)
	assert.Equal(t, "qr-A", event.QRCodeID)
	assert.Equal(t, domain.DeviceMobile, event.Device)
	assert.Equal(t, "Safari", event.Browser)
	assert.Equal(t, "Mac", event.OS)
	assert.Equal(t, domain.Location{Country: "DE", City: "Berlin"}, event.Location)
	assert.Equal(t, "198.51.100.7", event.IPAddress)
	assert.True(t, env.now.Equal(event.CreatedAt))

	code, err := env.store.GetQRCode(ctx, "qr-A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), code.ScanCount)

	scans, err := env.store.FindScans(ctx, store.ScanQuery{Filter: store.ScanFilter{QRCodeIDs: []string{"qr-A"}}})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, event.ID, scans[0].ID)

	require.Len(t, env.emitter.events, 1)
	published := env.emitter.events[0]
	assert.Equal(t, sse.EventScanRecorded, published.Type)
	assert.Equal(t, "u1", published.UserID)
	data := published.Data.(sse.ScanRecordedEventData)
	assert.Equal(t, int64(1), data.ScanCount)
	assert.Equal(t, "Menu", data.Title)
}

func TestTrack_UnknownAgentAndRepeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addCode(t, "qr-A", "u1", "Menu")

	for range 3 {
		event, err := env.tracker.Track(ctx, "qr-A", ScanSource{UserAgent: "Wget/1.21"})
		require.NoError(t, err)
		assert.Equal(t, domain.DeviceDesktop, event.Device)
		assert.Equal(t, domain.UnknownFamily, event.Browser)
		assert.Equal(t, domain.UnknownFamily, event.OS)
	}

	code, err := env.store.GetQRCode(ctx, "qr-A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), code.ScanCount)

	total, err := env.store.CountScans(ctx, store.ScanFilter{QRCodeIDs: []string{"qr-A"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestTrack_UnknownCode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.tracker.Track(context.Background(), "qr-missing", ScanSource{UserAgent: iphoneUA})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, "QR Code not found", err.Error())
	assert.Empty(t, env.emitter.events)
}

func TestTrack_InactiveCodesStillCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	code := env.addCode(t, "qr-A", "u1", "Menu")
	code.IsActive = false
	require.NoError(t, env.store.UpdateQRCode(ctx, code))

	_, err := env.tracker.Track(ctx, "qr-A", ScanSource{UserAgent: iphoneUA})
	require.NoError(t, err)
}

func TestTrackShortLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.qrcodes.Generate(ctx, "u1", GenerateRequest{
		Title:     "Campaign",
		Type:      domain.ContentURL,
		Content:   json.RawMessage(`{"url":"https://example.com/spring"}`),
		IsDynamic: true,
	})
	require.NoError(t, err)

	target, err := env.tracker.TrackShortLink(ctx, code.ShortURL, ScanSource{UserAgent: iphoneUA})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/spring", target)

	stored, err := env.store.GetQRCode(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ScanCount)

	_, err = env.tracker.TrackShortLink(ctx, "nothere1", ScanSource{})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = env.qrcodes.Update(ctx, "u1", code.ID, UpdateRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = env.tracker.TrackShortLink(ctx, code.ShortURL, ScanSource{})
	require.Error(t, err)
	assert.Equal(t, "Link not found", err.Error())

	stored, err = env.store.GetQRCode(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ScanCount, "inactive links record nothing")
}
