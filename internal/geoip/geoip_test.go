package geoip

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

func TestNoop(t *testing.T) {
	var r Resolver = Noop{}
	assert.True(t, r.Lookup("8.8.8.8").IsZero())
}

func TestOpenMaxMind_MissingFile(t *testing.T) {
	_, err := OpenMaxMind(filepath.Join(t.TempDir(), "missing.mmdb"), nil)
	assert.Error(t, err)
}

func TestMaxMind_SkipsUnroutableWithoutReader(t *testing.T) {
	m := &MaxMind{logger: slog.New(slog.DiscardHandler)}

	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "10.1.2.3", "::1", "0.0.0.0", "203.0.113.9"} {
		assert.True(t, m.Lookup(ip).IsZero(), ip)
	}
	assert.NoError(t, m.Close())
}

func TestMaxMind_ReloadAfterClose(t *testing.T) {
	// The path does not exist, so only the closed check can produce ErrClosed.
	m := &MaxMind{path: filepath.Join(t.TempDir(), "city.mmdb"), logger: slog.New(slog.DiscardHandler)}

	err := m.Reload()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClosed)

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Reload(), ErrClosed)
	assert.Nil(t, m.reader)
}

func TestLocationFromCity(t *testing.T) {
	// The record structs are anonymous; decode by field name.
	raw := `{
		"Country": {"IsoCode": "US"},
		"City": {"Names": {"en": "Portland", "de": "Portland"}},
		"Location": {"TimeZone": "America/Los_Angeles"},
		"Subdivisions": [{"IsoCode": "OR"}, {"IsoCode": "XX"}]
	}`
	var record geoip2.City
	require.NoError(t, json.Unmarshal([]byte(raw), &record))

	assert.Equal(t, domain.Location{
		Country:  "US",
		Region:   "OR",
		City:     "Portland",
		Timezone: "America/Los_Angeles",
	}, locationFromCity(&record))

	assert.True(t, locationFromCity(&geoip2.City{}).IsZero())
}

func TestWatchFile_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "GeoLite2-City.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, 50*time.Millisecond, slog.New(slog.DiscardHandler), func() {
			calls.Add(1)
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	for range 3 {
		require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
