// Package catalog persists the metadata record of every stored screenshot.
//
// Each mutation is a full read-modify-write of the persisted catalog and is
// serialized by a mutex owned by the catalog handle, so overlapping saves
// and deletes within one process never lose an update.
package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/afero"
)

// Catalog is the authoritative list of stored screenshots
type Catalog interface {
	// Load returns every record. A catalog that was never written is empty.
	Load(ctx context.Context) ([]models.Screenshot, error)

	// Upsert replaces the record with the same id or appends a new one
	Upsert(ctx context.Context, item models.Screenshot) error

	// RemoveByID drops the record with the given id; a missing id is a no-op
	RemoveByID(ctx context.Context, id string) error

	// Update applies fn to the record with the given id and persists the
	// result. It returns models.ErrNotFound if the id is unknown.
	Update(ctx context.Context, id string, fn func(*models.Screenshot) error) (models.Screenshot, error)

	Close() error
}

// Backend names accepted by Open
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// File names of the persisted catalog inside the storage root
const (
	IndexFileName  = "index.json"
	SQLiteFileName = "index.db"
)

func upsert(items []models.Screenshot, item models.Screenshot) []models.Screenshot {
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func removeByID(items []models.Screenshot, id string) []models.Screenshot {
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return kept
}

// Open returns the catalog for backend inside the storage root
func Open(backend string, fs afero.Fs, root string) (Catalog, error) {
	switch backend {
	case "", BackendJSON:
		c, err := OpenFile(fs, filepath.Join(root, IndexFileName))
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendSQLite:
		c, err := OpenSQLite(filepath.Join(root, SQLiteFileName))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, models.ValidationError("open catalog", fmt.Errorf("unknown catalog backend %q (want json|sqlite)", backend))
	}
}
