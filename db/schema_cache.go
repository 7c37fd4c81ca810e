package db

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SchemaSource produces a fresh schema snapshot.
type SchemaSource interface {
	Introspect(ctx context.Context) (*Schema, error)
}

// SchemaCache holds the shared, read-only schema snapshot. Concurrent
// loads collapse into a single introspection.
type SchemaCache struct {
	src   SchemaSource
	group singleflight.Group

	mu     sync.RWMutex
	schema *Schema
}

func NewSchemaCache(src SchemaSource) *SchemaCache {
	return &SchemaCache{src: src}
}

// Schema returns the cached snapshot, loading it on first use.
func (c *SchemaCache) Schema(ctx context.Context) (*Schema, error) {
	c.mu.RLock()
	s := c.schema
	c.mu.RUnlock()
	if s != nil {
		return s, nil
	}
	return c.load(ctx)
}

// Refresh replaces the snapshot. Sessions holding the previous snapshot
// keep using it unchanged.
func (c *SchemaCache) Refresh(ctx context.Context) (*Schema, error) {
	return c.load(ctx)
}

func (c *SchemaCache) load(ctx context.Context) (*Schema, error) {
	v, err, _ := c.group.Do("schema", func() (any, error) {
		s, err := c.src.Introspect(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.schema = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}
