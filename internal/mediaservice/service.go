// Package mediaservice coordinates the library files and the media index.
// It is the Media Index the gallery, pager and capture controllers talk to.
package mediaservice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"syscall"
	"time"

	"github.com/starford/camroll/internal/apperr"
	"github.com/starford/camroll/internal/index"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/parser"
	"github.com/starford/camroll/internal/storage"
)

// ChangeFunc is notified after the service itself adds or removes an item.
type ChangeFunc func(kind string, loc models.Locator, path string)

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.MediaIndex
	readOnly bool
	onChange ChangeFunc
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithReadOnly refuses every mutation with apperr.ErrPermissionDenied.
func WithReadOnly(ro bool) Option {
	return func(s *Service) { s.readOnly = ro }
}

// WithChangeFunc registers a hook called after imports and deletes.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(s *Service) { s.onChange = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new media service.
func NewService(store storage.Provider, db index.MediaIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ReadOnly reports whether mutations are refused.
func (s *Service) ReadOnly() bool { return s.readOnly }

// Query returns the locators of one kind, most recently added first.
func (s *Service) Query(ctx context.Context, kind models.Kind) ([]models.Locator, error) {
	return s.db.Query(ctx, kind)
}

// MimeType returns the MIME type recorded for loc.
func (s *Service) MimeType(ctx context.Context, loc models.Locator) (string, error) {
	return s.db.MimeType(ctx, loc)
}

// Get returns the metadata of one item.
func (s *Service) Get(ctx context.Context, loc models.Locator) (*models.Media, error) {
	r, err := s.db.Get(ctx, loc)
	if err != nil {
		return nil, err
	}
	m := r.Media()
	return &m, nil
}

// List returns a page of items (all kinds when kind is zero) and the total.
func (s *Service) List(ctx context.Context, kind models.Kind, limit, offset int) ([]models.Media, int, error) {
	rows, total, err := s.db.List(ctx, kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.Media, len(rows))
	for i, r := range rows {
		items[i] = r.Media()
	}
	return items, total, nil
}

// Counts returns the number of items per kind.
func (s *Service) Counts(ctx context.Context) (map[models.Kind]int, error) {
	return s.db.Counts(ctx)
}

// Open opens the content of loc. The caller closes the file.
func (s *Service) Open(ctx context.Context, loc models.Locator) (storage.File, *models.Media, error) {
	m, err := s.Get(ctx, loc)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.store.Open(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("mediaservice: %s: %w", loc, apperr.ErrNotFound)
		}
		return nil, nil, err
	}
	return f, m, nil
}

// Delete removes loc from the library and the index. A file that is already
// gone from disk only loses its index row. Once the file is removed, a row
// that vanished in the meantime still counts as deleted.
func (s *Service) Delete(ctx context.Context, loc models.Locator) error {
	if s.readOnly {
		return fmt.Errorf("mediaservice: delete %s: %w", loc, apperr.ErrPermissionDenied)
	}
	r, err := s.db.Get(ctx, loc)
	if err != nil {
		return err
	}
	removed := true
	if err := s.store.Delete(r.Path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return mapFSError(fmt.Sprintf("delete %s", loc), err)
		}
		removed = false
	}
	if err := s.db.Delete(ctx, loc); err != nil {
		// The watcher drops the row as soon as it sees the file go.
		if !removed || !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	s.notify("deleted", loc, r.Path)
	return nil
}

// Import stores the content of r as a new item of the given kind under dir
// and indexes it. name is the base name without extension; the extension
// follows the sniffed content type. When want is non-empty the content must
// sniff as exactly that MIME type.
func (s *Service) Import(ctx context.Context, kind models.Kind, want, dir, name string, r io.Reader) (*models.Media, error) {
	if s.readOnly {
		return nil, fmt.Errorf("mediaservice: import: %w", apperr.ErrPermissionDenied)
	}
	br := bufio.NewReaderSize(r, parser.SniffLen)
	head, err := br.Peek(parser.SniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("mediaservice: import: read: %w", err)
	}
	head = append([]byte(nil), head...)
	mime, err := parser.Validate(kind, head)
	if err != nil {
		return nil, fmt.Errorf("mediaservice: import: %w", err)
	}
	if want != "" && mime != want {
		return nil, fmt.Errorf("mediaservice: import: content is %s, want %s: %w", mime, want, apperr.ErrInvalidMedia)
	}
	ext, ok := parser.ExtByMIME(mime)
	if !ok {
		return nil, fmt.Errorf("mediaservice: import: %s is not a library format: %w", mime, apperr.ErrInvalidMedia)
	}
	rel := path.Join(dir, name+ext)

	if _, err := s.store.Stat(rel); err == nil {
		return nil, fmt.Errorf("mediaservice: import %s: %w", rel, apperr.ErrAlreadyExists)
	}
	if _, err := s.store.Write(rel, br); err != nil {
		return nil, mapFSError("import "+rel, err)
	}
	f, err := s.store.Stat(rel)
	if err != nil {
		return nil, err
	}
	now := s.now()
	res, err := parser.Parse(rel, head)
	if err != nil {
		_ = s.store.Delete(rel)
		return nil, err
	}
	loc, _, err := s.db.Upsert(ctx, index.Row{
		Kind:        kind,
		Path:        rel,
		DisplayName: res.DisplayName,
		MimeType:    mime,
		Size:        f.Size,
		Checksum:    f.Checksum,
		DateAdded:   now,
		CapturedAt:  res.CapturedAt,
	})
	if err != nil {
		_ = s.store.Delete(rel)
		return nil, err
	}
	s.notify("created", loc, rel)
	return s.Get(ctx, loc)
}

// Exists reports whether a file is already stored at rel.
func (s *Service) Exists(rel string) bool {
	_, err := s.store.Stat(rel)
	return err == nil
}

func (s *Service) notify(kind string, loc models.Locator, p string) {
	if s.onChange != nil {
		s.onChange(kind, loc, p)
	}
}

func mapFSError(op string, err error) error {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EROFS) {
		return fmt.Errorf("mediaservice: %s: %w: %w", op, apperr.ErrPermissionDenied, err)
	}
	return fmt.Errorf("mediaservice: %s: %w", op, err)
}
