package build

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cache persists transform outputs keyed by source path and content key, so
// unchanged documents skip the transform chain on rebuilds.
// Use ":memory:" for an in-memory cache, or a file path for persistence.
type Cache struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenCache opens (and initializes if needed) the transform cache.
func OpenCache(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	cache := &Cache{db: db}
	if err := cache.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return cache, nil
}

func (c *Cache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transforms (
		path TEXT NOT NULL,
		key TEXT NOT NULL,
		output BLOB NOT NULL,
		created INTEGER NOT NULL,
		PRIMARY KEY (path, key)
	);
	CREATE INDEX IF NOT EXISTS idx_transforms_created ON transforms(created);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached output for (path, key), with ok=false on a miss.
func (c *Cache) Get(ctx context.Context, path, key string) (output []byte, ok bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.db.QueryRowContext(ctx,
		"SELECT output FROM transforms WHERE path = ? AND key = ?", path, key)
	if err := row.Scan(&output); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query cache: %w", err)
	}
	return output, true, nil
}

// Put stores the output for (path, key), dropping any stale entries for the
// same path so the cache does not grow with every edit.
func (c *Cache) Put(ctx context.Context, path, key string, output []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		"DELETE FROM transforms WHERE path = ? AND key != ?", path, key); err != nil {
		return fmt.Errorf("evict stale cache entries: %w", err)
	}
	if _, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO transforms (path, key, output, created) VALUES (?, ?, ?, ?)",
		path, key, output, time.Now().Unix()); err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}
