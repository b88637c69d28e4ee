package providers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlytics/scanlytics-server/internal/geoip"
)

func TestGeoIPHandle_ShutdownWaitsForWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	watching := make(chan struct{})
	var finished atomic.Bool

	// Stands in for a reload that is still running when shutdown starts.
	go func() {
		defer close(watching)
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}()

	h := &GeoIPHandle{Resolver: geoip.Noop{}, cancel: cancel, watching: watching}
	require.NoError(t, h.Shutdown())
	assert.True(t, finished.Load())
}

func TestGeoIPHandle_ShutdownWithoutWatcher(t *testing.T) {
	_, cancel := context.WithCancel(context.Background())
	h := &GeoIPHandle{Resolver: geoip.Noop{}, cancel: cancel}
	assert.NoError(t, h.Shutdown())
}
