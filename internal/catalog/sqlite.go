package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pders01/shotvault/internal/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS screenshots (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	ticket_id  TEXT,
	record     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_screenshots_created_at ON screenshots(created_at);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=10000",
	"PRAGMA synchronous=NORMAL",
}

// SQLiteCatalog stores one row per screenshot keyed by id. The full record
// is kept as JSON so the persisted shape matches the JSON document backend.
type SQLiteCatalog struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (and if needed creates) the catalog database at path
func OpenSQLite(path string) (*SQLiteCatalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, models.IOError("create catalog directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, models.IOError("open catalog database", err)
	}
	// One connection keeps pragmas and the write path on a single session.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, models.IOError(fmt.Sprintf("apply %q", p), err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, models.IOError("create catalog schema", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

func (c *SQLiteCatalog) Load(ctx context.Context) ([]models.Screenshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, `SELECT record FROM screenshots ORDER BY rowid`)
	if err != nil {
		return nil, models.IOError("query catalog", err)
	}
	defer rows.Close()

	items := []models.Screenshot{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, models.IOError("scan catalog row", err)
		}
		var item models.Screenshot
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, models.SerializationError("parse catalog row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, models.IOError("iterate catalog", err)
	}
	return items, nil
}

func (c *SQLiteCatalog) Upsert(ctx context.Context, item models.Screenshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.put(ctx, c.db, item)
}

func (c *SQLiteCatalog) RemoveByID(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM screenshots WHERE id = ?`, id); err != nil {
		return models.IOError("delete catalog row", err)
	}
	return nil
}

func (c *SQLiteCatalog) Update(ctx context.Context, id string, fn func(*models.Screenshot) error) (models.Screenshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Screenshot{}, models.IOError("begin catalog update", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT record FROM screenshots WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Screenshot{}, models.NotFoundError("update catalog", id)
	}
	if err != nil {
		return models.Screenshot{}, models.IOError("read catalog row", err)
	}

	var item models.Screenshot
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return models.Screenshot{}, models.SerializationError("parse catalog row", err)
	}
	if err := fn(&item); err != nil {
		return models.Screenshot{}, err
	}
	if err := c.put(ctx, tx, item); err != nil {
		return models.Screenshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Screenshot{}, models.IOError("commit catalog update", err)
	}
	return item, nil
}

func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// put keeps the row (and its rowid) when the id already exists, so
// replaced records hold their position just like in the JSON document.
func (c *SQLiteCatalog) put(ctx context.Context, db execer, item models.Screenshot) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return models.SerializationError("encode catalog row", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO screenshots (id, created_at, ticket_id, record) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			ticket_id  = excluded.ticket_id,
			record     = excluded.record`,
		item.ID, item.CreatedAt, item.TicketID, string(raw))
	if err != nil {
		return models.IOError("write catalog row", err)
	}
	return nil
}
