package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/store"
)

// scanEventColumns is the ordered list of columns selected in scan event queries.
// Must match the scan order in scanScanEvent.
const scanEventColumns = `id, qr_code_id, ip_address, user_agent,
	country, region, city, timezone, device, browser, os, created_at`

func scanScanEvent(scanner interface{ Scan(dest ...any) error }) (*domain.ScanEvent, error) {
	var e domain.ScanEvent

	var (
		country   sql.NullString
		region    sql.NullString
		city      sql.NullString
		timezone  sql.NullString
		createdAt string
	)

	err := scanner.Scan(
		&e.ID,
		&e.QRCodeID,
		&e.IPAddress,
		&e.UserAgent,
		&country,
		&region,
		&city,
		&timezone,
		&e.Device,
		&e.Browser,
		&e.OS,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Location = domain.Location{
		Country:  country.String,
		Region:   region.String,
		City:     city.String,
		Timezone: timezone.String,
	}

	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// groupKeys maps a dimension to the SQL expression it groups on.
var groupKeys = map[store.Dimension]string{
	store.ByDay:     "substr(created_at, 1, 10)",
	store.ByDevice:  "device",
	store.ByCountry: "country",
	store.ByBrowser: "browser",
	store.ByQRCode:  "qr_code_id",
}

// scanWhere builds the WHERE clause for a scan filter. An empty id set
// yields ok=false and callers skip the query.
func scanWhere(filter store.ScanFilter) (where string, args []any, ok bool, err error) {
	if len(filter.QRCodeIDs) == 0 {
		return "", nil, false, nil
	}

	ids, err := idsJSON(filter.QRCodeIDs)
	if err != nil {
		return "", nil, false, err
	}

	conds := []string{"qr_code_id IN (SELECT value FROM json_each(?))"}
	args = []any{ids}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true, nil
}

// CreateScanEvent appends a scan event. Missing location fields are stored as NULL.
func (s *Store) CreateScanEvent(ctx context.Context, e *domain.ScanEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_events (
			id, qr_code_id, ip_address, user_agent,
			country, region, city, timezone, device, browser, os, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.QRCodeID,
		e.IPAddress,
		e.UserAgent,
		nullString(e.Location.Country),
		nullString(e.Location.Region),
		nullString(e.Location.City),
		nullString(e.Location.Timezone),
		string(e.Device),
		e.Browser,
		e.OS,
		formatTime(e.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return store.ErrNotFound.WithMessage("qr code not found")
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// CountScans counts events matching filter.
func (s *Store) CountScans(ctx context.Context, filter store.ScanFilter) (int64, error) {
	where, args, ok, err := scanWhere(filter)
	if err != nil || !ok {
		return 0, err
	}

	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_events`+where, args...).Scan(&n)
	return n, err
}

// FindScans returns events matching the query, newest first.
func (s *Store) FindScans(ctx context.Context, q store.ScanQuery) ([]*domain.ScanEvent, error) {
	events := []*domain.ScanEvent{}

	where, args, ok, err := scanWhere(q.Filter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return events, nil
	}

	query := `SELECT ` + scanEventColumns + ` FROM scan_events` + where + ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanScanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// GroupScans runs a match, group, sort, limit pipeline over scan events.
// Groups with a NULL key are returned with a nil Key.
func (s *Store) GroupScans(ctx context.Context, q store.GroupQuery) ([]domain.Bucket, error) {
	buckets := []domain.Bucket{}

	expr, known := groupKeys[q.By]
	if !known {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown dimension %q", q.By))
	}

	where, args, ok, err := scanWhere(q.Filter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return buckets, nil
	}

	var order string
	switch q.Order {
	case store.OrderByCountDesc:
		order = ` ORDER BY c DESC, k ASC`
	default:
		order = ` ORDER BY k ASC`
	}

	query := `SELECT ` + expr + ` AS k, COUNT(*) AS c FROM scan_events` + where + ` GROUP BY k` + order
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   sql.NullString
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		b := domain.Bucket{Count: count}
		if key.Valid {
			k := key.String
			b.Key = &k
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}
