package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/burakenal/data/core/result"
	"github.com/burakenal/data/core/table"
)

// schemaEntry is a cached table schema.
type schemaEntry struct {
	columns  []result.ColumnSchema
	loadedAt time.Time
}

func (e *schemaEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.loadedAt) > ttl
}

// SchemaCache resolves table schemas through GetTableColumns and keeps them
// for a TTL. Concurrent misses for the same table share a single lookup.
type SchemaCache struct {
	db    *gorm.DB
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*schemaEntry
	group singleflight.Group
}

// NewSchemaCache creates a cache over db. A ttl of zero disables reuse but
// still collapses concurrent lookups.
func NewSchemaCache(db *gorm.DB, ttl time.Duration) *SchemaCache {
	return &SchemaCache{
		db:    db,
		ttl:   ttl,
		items: make(map[string]*schemaEntry),
	}
}

// TableSchema implements result.SchemaSource.
func (c *SchemaCache) TableSchema(ctx context.Context, tableName string) ([]result.ColumnSchema, error) {
	if cols, ok := c.lookup(tableName); ok {
		return cols, nil
	}

	v, err, _ := c.group.Do(tableName, func() (interface{}, error) {
		// double-check after winning the flight
		if cols, ok := c.lookup(tableName); ok {
			return cols, nil
		}

		infos, err := GetTableColumns(ctx, c.db, tableName)
		if err != nil {
			return nil, err
		}
		cols := make([]result.ColumnSchema, len(infos))
		for i, info := range infos {
			cols[i] = result.ColumnSchema{
				Name:       info.Field,
				Type:       table.TypeFromDatabaseName(info.Type),
				IsKey:      info.IsKey(),
				IsIdentity: info.IsIdentity(),
				Nullable:   info.Null == "YES",
			}
		}

		if c.ttl > 0 {
			c.mu.Lock()
			c.items[tableName] = &schemaEntry{columns: cols, loadedAt: time.Now()}
			c.mu.Unlock()
		}
		return cols, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema of %s: %w", tableName, err)
	}
	return v.([]result.ColumnSchema), nil
}

// Invalidate drops the cached schema of tableName, or of every table when
// tableName is empty.
func (c *SchemaCache) Invalidate(tableName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tableName == "" {
		c.items = make(map[string]*schemaEntry)
		return
	}
	delete(c.items, tableName)
}

func (c *SchemaCache) lookup(tableName string) ([]result.ColumnSchema, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[tableName]
	if !ok || e.isExpired(c.ttl) {
		return nil, false
	}
	return e.columns, true
}
