package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/afero"
)

// FileCatalog keeps the catalog as one pretty-printed JSON array
type FileCatalog struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// OpenFile returns a catalog backed by the JSON document at path.
// The document is not created until the first mutation.
func OpenFile(fs afero.Fs, path string) (*FileCatalog, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, models.IOError("create catalog directory", err)
	}
	return &FileCatalog{fs: fs, path: path}, nil
}

// Path returns the location of the catalog document
func (c *FileCatalog) Path() string {
	return c.path
}

func (c *FileCatalog) Load(ctx context.Context) ([]models.Screenshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

func (c *FileCatalog) Upsert(ctx context.Context, item models.Screenshot) error {
	return c.mutate(ctx, func(items []models.Screenshot) ([]models.Screenshot, error) {
		return upsert(items, item), nil
	})
}

func (c *FileCatalog) RemoveByID(ctx context.Context, id string) error {
	return c.mutate(ctx, func(items []models.Screenshot) ([]models.Screenshot, error) {
		return removeByID(items, id), nil
	})
}

func (c *FileCatalog) Update(ctx context.Context, id string, fn func(*models.Screenshot) error) (models.Screenshot, error) {
	var updated models.Screenshot
	err := c.mutate(ctx, func(items []models.Screenshot) ([]models.Screenshot, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if err := fn(&items[i]); err != nil {
				return nil, err
			}
			updated = items[i]
			return items, nil
		}
		return nil, models.NotFoundError("update catalog", id)
	})
	return updated, err
}

func (c *FileCatalog) Close() error {
	return nil
}

// mutate runs one read-modify-write cycle under the catalog lock
func (c *FileCatalog) mutate(ctx context.Context, fn func([]models.Screenshot) ([]models.Screenshot, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.read()
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	return c.write(items)
}

func (c *FileCatalog) read() ([]models.Screenshot, error) {
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Screenshot{}, nil
		}
		return nil, models.IOError("read catalog", err)
	}

	var items []models.Screenshot
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, models.SerializationError("parse catalog "+c.path, err)
	}
	if items == nil {
		items = []models.Screenshot{}
	}
	return items, nil
}

// write replaces the document through a temp file and rename so readers
// never observe a partially written catalog.
func (c *FileCatalog) write(items []models.Screenshot) error {
	if items == nil {
		items = []models.Screenshot{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return models.SerializationError("encode catalog", err)
	}

	tmp, err := afero.TempFile(c.fs, filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return models.IOError("create temp catalog", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		c.fs.Remove(tmpName)
		return models.IOError("write catalog", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		c.fs.Remove(tmpName)
		return models.IOError("sync catalog", err)
	}
	if err := tmp.Close(); err != nil {
		c.fs.Remove(tmpName)
		return models.IOError("close catalog", err)
	}
	if err := c.fs.Rename(tmpName, c.path); err != nil {
		c.fs.Remove(tmpName)
		return models.IOError(fmt.Sprintf("replace catalog %s", c.path), err)
	}
	return nil
}
