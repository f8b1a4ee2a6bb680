// Package cache implements a cached connector to the entity id lookup store
package cache

import (
	"context"
	"github.com/rs/zerolog"
	"orderconsumer/internal/interfaces"
	"os"
	"strings"
)

// A Manager is a thread-safe lookup store answering repeated lookups from cache
type Manager struct {
	cache  interfaces.Cache[string, string]
	store  interfaces.LookupStore
	logger *zerolog.Logger
}

// NewManager creates a new manager with specified cache, store and logger
func NewManager(
	cache interfaces.Cache[string, string], store interfaces.LookupStore, logger *zerolog.Logger,
) *Manager {
	if logger == nil {
		logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		return &Manager{cache: cache, store: store, logger: &logger}
	}
	return &Manager{cache: cache, store: store, logger: logger}
}

func cacheKey(collection, key, field string) string {
	return strings.Join([]string{collection, key, field}, "\x00")
}

// Lookup returns the value from cache, if it's not there - from the store.
// Absent values are not cached.
func (c *Manager) Lookup(ctx context.Context, collection, key, field string) (string, bool, error) {
	ck := cacheKey(collection, key, field)
	if value, ok := c.cache.Get(ck); ok {
		return value, true, nil
	}

	value, found, err := c.store.Lookup(ctx, collection, key, field)
	if err != nil {
		c.logger.Error().Stack().Err(err).Str("collection", collection).Str("field", field).Msg("")
		return "", false, err
	}
	if found {
		c.cache.Set(ck, value)
	}
	return value, found, nil
}

// FlushCache cleans all cache
func (c *Manager) FlushCache() {
	c.cache.Flush()
}

// SizeCache returns number of elements in cache
func (c *Manager) SizeCache() int {
	return c.cache.Size()
}

// CapacityCache returns how many values the cache can hold
func (c *Manager) CapacityCache() int {
	return c.cache.Capacity()
}
