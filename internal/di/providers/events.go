package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/scanlytics/scanlytics-server/internal/logger"
	"github.com/scanlytics/scanlytics-server/internal/sse"
)

// SSEManagerHandle runs the live feed loop for the life of the container.
type SSEManagerHandle struct {
	*sse.Manager
	stop context.CancelFunc
}

// Shutdown delivers queued events, bounded by shutdownTimeout, then stops
// the loop and closes every stream.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Manager.Shutdown(ctx)
	h.stop()
	return err
}

// ProvideSSEManager starts the live scan feed.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	m := sse.NewManager(log.Component("sse"))
	ctx, stop := context.WithCancel(context.Background())
	m.Start(ctx)

	return &SSEManagerHandle{Manager: m, stop: stop}, nil
}
