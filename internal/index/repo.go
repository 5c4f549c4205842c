package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/models"
)

// Row represents a row in the media table.
type Row struct {
	ID          int64
	Kind        models.Kind
	Path        string
	DisplayName string
	MimeType    string
	Size        int64
	Checksum    string
	DateAdded   time.Time
	CapturedAt  time.Time
}

// Locator returns the row's media locator.
func (r Row) Locator() models.Locator {
	return models.NewLocator(r.Kind, r.ID)
}

// Media converts the row into its public representation.
func (r Row) Media() models.Media {
	return models.Media{
		Locator:     r.Locator(),
		Kind:        r.Kind.String(),
		Path:        r.Path,
		DisplayName: r.DisplayName,
		MimeType:    r.MimeType,
		Size:        r.Size,
		Checksum:    r.Checksum,
		DateAdded:   r.DateAdded,
	}
}

const selectColumns = `id, kind, path, display_name, mime_type, size, checksum, date_added, captured_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (*Row, error) {
	var (
		r                 Row
		kind              string
		added, capturedAt int64
	)
	if err := s.Scan(&r.ID, &kind, &r.Path, &r.DisplayName, &r.MimeType, &r.Size, &r.Checksum, &added, &capturedAt); err != nil {
		return nil, err
	}
	k, err := models.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("index: row %d: %w", r.ID, err)
	}
	r.Kind = k
	r.DateAdded = time.Unix(0, added)
	if capturedAt != 0 {
		r.CapturedAt = time.Unix(0, capturedAt)
	}
	return &r, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// Insert adds a new row and returns its locator. A second row for the same
// path fails with apperr.ErrAlreadyExists.
func (db *DB) Insert(ctx context.Context, r Row) (models.Locator, error) {
	if r.DateAdded.IsZero() {
		r.DateAdded = time.Now()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO media (kind, path, display_name, mime_type, size, checksum, date_added, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Kind.String(), r.Path, r.DisplayName, r.MimeType, r.Size, r.Checksum, unixNano(r.DateAdded), unixNano(r.CapturedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("index: insert %s: %w", r.Path, apperr.ErrAlreadyExists)
		}
		return "", fmt.Errorf("index: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("index: insert id: %w", err)
	}
	return models.NewLocator(r.Kind, id), nil
}

// Upsert inserts a row for r.Path or refreshes the content columns of the
// existing one. DateAdded of an existing row is preserved.
func (db *DB) Upsert(ctx context.Context, r Row) (loc models.Locator, created bool, err error) {
	existing, err := db.GetByPath(ctx, r.Path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		loc, err = db.Insert(ctx, r)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			// Lost the race against the watcher or an import.
			return db.Upsert(ctx, r)
		}
		return loc, err == nil, err
	case err != nil:
		return "", false, err
	}

	_, err = db.conn.ExecContext(ctx, `
		UPDATE media SET
			kind         = ?,
			display_name = ?,
			mime_type    = ?,
			size         = ?,
			checksum     = ?,
			captured_at  = ?
		WHERE id = ?
	`, r.Kind.String(), r.DisplayName, r.MimeType, r.Size, r.Checksum, unixNano(r.CapturedAt), existing.ID)
	if err != nil {
		return "", false, fmt.Errorf("index: update %s: %w", r.Path, err)
	}
	return models.NewLocator(r.Kind, existing.ID), false, nil
}

// Query returns the locators of one kind, most recently added first.
func (db *DB) Query(ctx context.Context, kind models.Kind) ([]models.Locator, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM media
		WHERE kind = ?
		ORDER BY date_added DESC, id DESC
	`, kind.String())
	if err != nil {
		return nil, fmt.Errorf("index: query %s: %w", kind, err)
	}
	defer rows.Close()

	out := []models.Locator{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, models.NewLocator(kind, id))
	}
	return out, rows.Err()
}

// List returns a page of rows (all kinds when kind is zero), newest first,
// together with the total number of matching rows.
func (db *DB) List(ctx context.Context, kind models.Kind, limit, offset int) ([]Row, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	where, args := "", []any{}
	if kind != 0 {
		where, args = "WHERE kind = ?", append(args, kind.String())
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM media `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM media `+where+` ORDER BY date_added DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// Get returns the row behind a locator.
func (db *DB) Get(ctx context.Context, loc models.Locator) (*Row, error) {
	kind, id, err := loc.Split()
	if err != nil {
		return nil, fmt.Errorf("index: %w: %w", apperr.ErrNotFound, err)
	}
	r, err := scanRow(db.conn.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM media WHERE id = ? AND kind = ?`, id, kind.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", loc, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get %s: %w", loc, err)
	}
	return r, nil
}

// GetByPath returns the row for a library-relative path.
func (db *DB) GetByPath(ctx context.Context, path string) (*Row, error) {
	r, err := scanRow(db.conn.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM media WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get path %s: %w", path, err)
	}
	return r, nil
}

// MimeType returns the stored MIME type for a locator.
func (db *DB) MimeType(ctx context.Context, loc models.Locator) (string, error) {
	r, err := db.Get(ctx, loc)
	if err != nil {
		return "", err
	}
	return r.MimeType, nil
}

// Delete removes the row behind a locator. Deleting a row that is already
// gone returns apperr.ErrNotFound.
func (db *DB) Delete(ctx context.Context, loc models.Locator) error {
	kind, id, err := loc.Split()
	if err != nil {
		return fmt.Errorf("index: %w: %w", apperr.ErrNotFound, err)
	}
	res, err := db.conn.ExecContext(ctx, `DELETE FROM media WHERE id = ? AND kind = ?`, id, kind.String())
	if err != nil {
		return fmt.Errorf("index: delete %s: %w", loc, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: delete %s: %w", loc, apperr.ErrNotFound)
	}
	return nil
}

// DeleteByPath removes the row for path and returns the locator it had.
func (db *DB) DeleteByPath(ctx context.Context, path string) (models.Locator, error) {
	r, err := db.GetByPath(ctx, path)
	if err != nil {
		return "", err
	}
	if err := db.Delete(ctx, r.Locator()); err != nil {
		return "", err
	}
	return r.Locator(), nil
}

// AllChecksums returns path → checksum for every indexed item.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM media`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Counts returns the number of indexed items per kind.
func (db *DB) Counts(ctx context.Context) (map[models.Kind]int, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT kind, count(*) FROM media GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("index: counts: %w", err)
	}
	defer rows.Close()
	out := make(map[models.Kind]int, len(models.Kinds))
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		if k, err := models.ParseKind(kind); err == nil {
			out[k] = n
		}
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
