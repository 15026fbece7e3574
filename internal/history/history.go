package history

import "github.com/starford/ansuz/internal/models"

// Store defines the compile history operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	Record(c models.Compilation) error
	Get(id string) (*models.Compilation, error)
	List(opts ListOptions) ([]models.Compilation, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	MarkDocument(path, checksum string) error
	ForgetDocument(path string) error
	DocumentChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
