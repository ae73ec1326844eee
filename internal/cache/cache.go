// Package cache holds derived views that are cheap to rebuild and expire on their own.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a size-bounded string-keyed cache whose entries expire after a fixed TTL.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a cache holding at most size entries.
func New[V any](size int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set stores value under key, resetting its TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

// Del drops key. Missing keys are ignored.
func (c *Cache[V]) Del(key string) {
	c.lru.Remove(key)
}
