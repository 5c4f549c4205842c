package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/parser"
	"github.com/starford/camroll/internal/storage"
)

// Sync walks the library and brings the index up to date:
//   - new/changed files are classified and upserted
//   - files removed from disk are deleted from the index
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) error {
	files, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums(ctx)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	indexed, removed := 0, 0
	for _, f := range files {
		disk[f.Path] = struct{}{}

		if cs, ok := checksums[f.Path]; ok && cs == f.Checksum {
			continue
		}
		if _, _, err := indexFile(ctx, db, store, f); err != nil {
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
		logger.Debug("sync: indexed", slog.String("path", f.Path))
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if _, err := db.DeleteByPath(ctx, p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: done",
		slog.Int("files", len(files)),
		slog.Int("indexed", indexed),
		slog.Int("removed", removed))
	return nil
}

// indexFile classifies one library file and upserts it into the DB.
func indexFile(ctx context.Context, db *DB, store storage.Provider, f models.MediaFile) (models.Locator, bool, error) {
	head, err := readHead(store, f.Path)
	if err != nil {
		return "", false, err
	}
	res, err := parser.Parse(f.Path, head)
	if err != nil {
		return "", false, err
	}
	return db.Upsert(ctx, Row{
		Kind:        res.Kind,
		Path:        f.Path,
		DisplayName: res.DisplayName,
		MimeType:    res.MimeType,
		Size:        f.Size,
		Checksum:    f.Checksum,
		DateAdded:   f.UpdatedAt,
		CapturedAt:  res.CapturedAt,
	})
}

func readHead(store storage.Provider, path string) ([]byte, error) {
	file, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	head := make([]byte, parser.SniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("index: read head %s: %w", path, err)
	}
	return head[:n], nil
}
