package geoip

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a file must stay quiet before a change is acted on.
const DefaultSettleDelay = 500 * time.Millisecond

// WatchFile calls onChange after path is written, created or renamed into
// place and then left untouched for settle. The parent directory is watched
// so atomic replacements are seen. WatchFile blocks until ctx is cancelled.
func WatchFile(ctx context.Context, path string, settle time.Duration, logger *slog.Logger, onChange func()) error {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("geoip watch error", "error", err)
		case <-timer.C:
			onChange()
		}
	}
}

// Watch reloads the database whenever its file changes.
func (m *MaxMind) Watch(ctx context.Context, settle time.Duration) error {
	return WatchFile(ctx, m.path, settle, m.logger, func() {
		if err := m.Reload(); err != nil {
			m.logger.Error("geoip reload failed", "path", m.path, "error", err)
		}
	})
}
