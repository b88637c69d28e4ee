package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/scanlytics/scanlytics-server/internal/config"
	"github.com/scanlytics/scanlytics-server/internal/logger"
	"github.com/scanlytics/scanlytics-server/internal/store/sqlite"
)

// StoreHandle owns the SQLite store and closes it on shutdown.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the catalog and event log database, creating its
// directory on first run.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.Storage.Database
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlite.Open(path, log.Component("store"))
	if err != nil {
		return nil, err
	}
	log.Info("Database initialized", "path", path)
	return &StoreHandle{Store: db}, nil
}
