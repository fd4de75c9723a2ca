package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemorySize = 128

// MemoryCache is an in-process LRU with a single expiry for all entries.
// Values are stored as JSON so callers get copies, matching RedisCache.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache creates a memory cache holding at most size entries, each
// expiring ttl after it was set. A zero ttl disables expiry.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(_ context.Context, key string, value interface{}) error {
	data, ok := c.lru.Get(key)
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, value)
}

// Set stores a value. The per-call ttl is ignored; expiry is fixed at construction.
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.lru.Add(key, data)
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Close purges the cache
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
