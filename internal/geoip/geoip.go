// Package geoip resolves scan origins from client IP addresses.
package geoip

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"github.com/scanlytics/scanlytics-server/internal/domain"
)

// ErrClosed is returned by Reload after Close.
var ErrClosed = errors.New("geoip database closed")

// Resolver maps an IP address to a location. Lookups never fail; an
// unresolvable address yields the zero Location.
type Resolver interface {
	Lookup(ip string) domain.Location
}

// Noop resolves nothing. It is used when no database is configured.
type Noop struct{}

// Lookup implements Resolver.
func (Noop) Lookup(string) domain.Location { return domain.Location{} }

// MaxMind resolves addresses with a GeoLite2/GeoIP2 City database.
// The database can be swapped at runtime with Reload.
type MaxMind struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	reader *geoip2.Reader
	closed bool
}

// OpenMaxMind opens the City database at path.
func OpenMaxMind(path string, logger *slog.Logger) (*MaxMind, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMind{path: path, logger: logger, reader: reader}, nil
}

// Path returns the database file path.
func (m *MaxMind) Path() string { return m.path }

// Lookup implements Resolver.
func (m *MaxMind) Lookup(ip string) domain.Location {
	addr := net.ParseIP(ip)
	if addr == nil || addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() {
		return domain.Location{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reader == nil {
		return domain.Location{}
	}

	record, err := m.reader.City(addr)
	if err != nil {
		m.logger.Debug("geoip lookup failed", "ip", ip, "error", err)
		return domain.Location{}
	}
	return locationFromCity(record)
}

func locationFromCity(record *geoip2.City) domain.Location {
	loc := domain.Location{
		Country:  record.Country.IsoCode,
		City:     record.City.Names["en"],
		Timezone: record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].IsoCode
	}
	return loc
}

// Reload reopens the database file and swaps it in. The previous reader is
// closed once no lookup holds it. After Close, Reload opens nothing and a
// reader opened concurrently with Close is released again.
func (m *MaxMind) Reload() error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	reader, err := geoip2.Open(m.path)
	if err != nil {
		return fmt.Errorf("reopen geoip database: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		reader.Close()
		return ErrClosed
	}
	old := m.reader
	m.reader = reader
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	m.logger.Info("geoip database reloaded", "path", m.path)
	return nil
}

// Close releases the database. Later lookups resolve nothing.
func (m *MaxMind) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.reader == nil {
		return nil
	}
	err := m.reader.Close()
	m.reader = nil
	return err
}
