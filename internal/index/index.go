package index

import (
	"context"

	"github.com/starford/camroll/internal/models"
)

// MediaIndex defines the interface for media indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type MediaIndex interface {
	Insert(ctx context.Context, r Row) (models.Locator, error)
	Upsert(ctx context.Context, r Row) (models.Locator, bool, error)
	Query(ctx context.Context, kind models.Kind) ([]models.Locator, error)
	List(ctx context.Context, kind models.Kind, limit, offset int) ([]Row, int, error)
	Get(ctx context.Context, loc models.Locator) (*Row, error)
	GetByPath(ctx context.Context, path string) (*Row, error)
	MimeType(ctx context.Context, loc models.Locator) (string, error)
	Delete(ctx context.Context, loc models.Locator) error
	DeleteByPath(ctx context.Context, path string) (models.Locator, error)
	AllChecksums(ctx context.Context) (map[string]string, error)
	Counts(ctx context.Context) (map[models.Kind]int, error)
	Close() error
}

// Verify *DB satisfies MediaIndex at compile time.
var _ MediaIndex = (*DB)(nil)
