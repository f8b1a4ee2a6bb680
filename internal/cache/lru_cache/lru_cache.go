// Package lru_cache implements a lru cache data structure with optional expiry
package lru_cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// A LRUCache is a thread-safe implementation of least recently used cache
type LRUCache[K comparable, V any] struct {
	lruList  *list.List
	cache    map[K]*list.Element
	capacity int
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewLRUCache create empty cache. Entries older than ttl are dropped on access, ttl 0 keeps them forever
func NewLRUCache[K comparable, V any](capacity int, ttl time.Duration) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("expected positive number for capacity, got: %d", capacity)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("expected non-negative ttl, got: %v", ttl)
	}
	return &LRUCache[K, V]{
		lruList:  list.New(),
		cache:    make(map[K]*list.Element),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Set add a new key-value pair to cache, might evict the least recently used pair
func (c *LRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.cache[key]; ok {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		c.lruList.MoveToFront(elem)
		return
	}

	if c.lruList.Len() == c.capacity {
		c.removeElement(c.lruList.Back())
	}

	c.cache[key] = c.lruList.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
}

// Get return a value by key and moves this pair to front
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return
	}
	if c.expired(elem) {
		c.removeElement(elem)
		return value, false
	}

	c.lruList.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Flush clears a cache
func (c *LRUCache[K, V]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lruList.Init()
	clear(c.cache)
}

// Size returns how many elements are currently cached, expired ones included until touched
func (c *LRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lruList.Len()
}

// Capacity returns the maximum capacity of the cache
func (c *LRUCache[K, V]) Capacity() int {
	return c.capacity
}

func (c *LRUCache[K, V]) expired(elem *list.Element) bool {
	e := elem.Value.(*entry[K, V])
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	if elem == nil {
		return
	}
	c.lruList.Remove(elem)
	delete(c.cache, elem.Value.(*entry[K, V]).key)
}
