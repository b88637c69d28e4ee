package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/store"
)

// qrCodeColumns is the ordered list of columns selected in QR code queries.
// Must match the scan order in scanQRCode.
const qrCodeColumns = `id, user_id, title, type, content, qr_image,
	foreground_color, background_color, logo, size, margin,
	is_dynamic, short_url, scan_count, is_active, created_at, updated_at`

// foldTitle returns the caseless form of a title used for substring search.
func foldTitle(s string) string {
	return cases.Fold().String(s)
}

func scanQRCode(scanner interface{ Scan(dest ...any) error }) (*domain.QRCode, error) {
	var q domain.QRCode

	var (
		content   string
		shortURL  sql.NullString
		isDynamic int
		isActive  int
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&q.ID,
		&q.UserID,
		&q.Title,
		&q.Type,
		&content,
		&q.Image,
		&q.Customization.ForegroundColor,
		&q.Customization.BackgroundColor,
		&q.Customization.Logo,
		&q.Customization.Size,
		&q.Customization.Margin,
		&isDynamic,
		&shortURL,
		&q.ScanCount,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.Content = json.RawMessage(content)
	q.ShortURL = shortURL.String
	q.IsDynamic = isDynamic != 0
	q.IsActive = isActive != 0

	q.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	q.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// idsJSON encodes ids for use with json_each(?).
func idsJSON(ids []string) (string, error) {
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode ids: %w", err)
	}
	return string(b), nil
}

// qrCodeWhere builds the WHERE clause for a catalog filter.
func qrCodeWhere(filter store.QRCodeFilter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)

	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.IDs != nil {
		ids, err := idsJSON(filter.IDs)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, "id IN (SELECT value FROM json_each(?))")
		args = append(args, ids)
	}
	if filter.Search != "" {
		conds = append(conds, "instr(title_folded, ?) > 0")
		args = append(args, foldTitle(filter.Search))
	}
	if filter.Active != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, boolInt(*filter.Active))
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// CreateQRCode inserts a new QR code.
// Returns store.ErrAlreadyExists on a duplicate id or short url.
func (s *Store) CreateQRCode(ctx context.Context, q *domain.QRCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO qr_codes (
			id, user_id, title, title_folded, type, content, qr_image,
			foreground_color, background_color, logo, size, margin,
			is_dynamic, short_url, scan_count, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.UserID,
		q.Title,
		foldTitle(q.Title),
		string(q.Type),
		string(q.Content),
		q.Image,
		q.Customization.ForegroundColor,
		q.Customization.BackgroundColor,
		q.Customization.Logo,
		q.Customization.Size,
		q.Customization.Margin,
		boolInt(q.IsDynamic),
		nullString(q.ShortURL),
		q.ScanCount,
		boolInt(q.IsActive),
		formatTime(q.CreatedAt),
		formatTime(q.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	if err := s.indexer.IndexQRCode(ctx, q); err != nil {
		s.logger.Warn("failed to index qr code", "id", q.ID, "error", err)
	}
	return nil
}

// GetQRCode retrieves a QR code by id.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetQRCode(ctx context.Context, id string) (*domain.QRCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+qrCodeColumns+` FROM qr_codes WHERE id = ?`, id)

	q, err := scanQRCode(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetQRCodeByShortURL retrieves a dynamic QR code by its short link token.
func (s *Store) GetQRCodeByShortURL(ctx context.Context, token string) (*domain.QRCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+qrCodeColumns+` FROM qr_codes WHERE short_url = ?`, token)

	q, err := scanQRCode(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetQRCodesByIDs retrieves the codes that exist among ids in one query.
func (s *Store) GetQRCodesByIDs(ctx context.Context, ids []string) (map[string]*domain.QRCode, error) {
	result := make(map[string]*domain.QRCode, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	codes, err := s.ListQRCodes(ctx, store.QRCodeFilter{IDs: ids}, store.ListOptions{})
	if err != nil {
		return nil, err
	}
	for _, q := range codes {
		result[q.ID] = q
	}
	return result, nil
}

// ListQRCodes returns codes matching filter, newest first.
func (s *Store) ListQRCodes(ctx context.Context, filter store.QRCodeFilter, opts store.ListOptions) ([]*domain.QRCode, error) {
	where, args, err := qrCodeWhere(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + qrCodeColumns + ` FROM qr_codes` + where + ` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := []*domain.QRCode{}
	for rows.Next() {
		q, err := scanQRCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// CountQRCodes counts codes matching filter.
func (s *Store) CountQRCodes(ctx context.Context, filter store.QRCodeFilter) (int64, error) {
	where, args, err := qrCodeWhere(filter)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM qr_codes`+where, args...).Scan(&n)
	return n, err
}

// QRCodeIDs returns the ids of codes matching filter.
func (s *Store) QRCodeIDs(ctx context.Context, filter store.QRCodeFilter) ([]string, error) {
	where, args, err := qrCodeWhere(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM qr_codes`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateQRCode overwrites the mutable fields of an existing code.
// The scan counter is left alone so concurrent scans are not lost.
func (s *Store) UpdateQRCode(ctx context.Context, q *domain.QRCode) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE qr_codes SET
			title = ?, title_folded = ?, content = ?, qr_image = ?,
			foreground_color = ?, background_color = ?, logo = ?, size = ?, margin = ?,
			is_dynamic = ?, short_url = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		q.Title,
		foldTitle(q.Title),
		string(q.Content),
		q.Image,
		q.Customization.ForegroundColor,
		q.Customization.BackgroundColor,
		q.Customization.Logo,
		q.Customization.Size,
		q.Customization.Margin,
		boolInt(q.IsDynamic),
		nullString(q.ShortURL),
		boolInt(q.IsActive),
		formatTime(q.UpdatedAt),
		q.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if err := s.indexer.IndexQRCode(ctx, q); err != nil {
		s.logger.Warn("failed to reindex qr code", "id", q.ID, "error", err)
	}
	return nil
}

// DeleteQRCode removes a code and all of its scan events in one transaction.
// Returns the number of scan events removed.
func (s *Store) DeleteQRCode(ctx context.Context, id string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	scans, err := tx.ExecContext(ctx, `DELETE FROM scan_events WHERE qr_code_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete scan events: %w", err)
	}
	removed, err := scans.RowsAffected()
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM qr_codes WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete qr code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if err := s.indexer.DeleteQRCode(ctx, id); err != nil {
		s.logger.Warn("failed to remove qr code from index", "id", id, "error", err)
	}
	return removed, nil
}

// IncrementScanCount atomically adds one to a code's scan counter.
func (s *Store) IncrementScanCount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE qr_codes SET scan_count = scan_count + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
