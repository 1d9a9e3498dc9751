// Package lru provides a thread-safe, fixed-capacity cache with
// least-recently-used eviction. It is the storage substrate for the
// record cache; it knows nothing about TTLs or what it stores.
package lru

import (
	"container/list"
	"fmt"
	"sync"
)

// Cache maps keys to values, keeping at most its capacity of entries and
// evicting the least recently used entry when full. A Get promotes the key
// to most recent; a Has does not touch recency.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = least recent, back = most recent
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates a cache holding at most capacity entries. Capacity below 1 is
// a configuration error and is never clamped.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("lru: capacity must be at least 1, got %d", capacity)
	}
	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}, nil
}

// Get returns the value for key and promotes it to most recent.
// A miss is a normal (zero, false) return, never an error.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToBack(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Has reports presence without altering recency order.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Put stores value under key. An existing key is updated in place and
// promoted; a new key evicts the least recent entry first when the cache
// is at capacity.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToBack(elem)
		return
	}

	if c.order.Len() == c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
	}
	c.items[key] = c.order.PushBack(&entry[K, V]{key: key, value: value})
}

// Delete removes key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	return true
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the keys in least-recent-to-most-recent order as a snapshot
// taken under the lock, so callers may mutate the cache while ranging.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry[K, V]).key)
	}
	return keys
}

// Values returns the values in least-recent-to-most-recent order, snapshot
// semantics as Keys.
func (c *Cache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		values = append(values, elem.Value.(*entry[K, V]).value)
	}
	return values
}

// Entries calls fn for each key/value pair in least-recent-to-most-recent
// order over a snapshot of the current state. Recency is not altered.
func (c *Cache[K, V]) Entries(fn func(key K, value V) bool) {
	c.mu.Lock()
	type pair struct {
		key   K
		value V
	}
	pairs := make([]pair, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry[K, V])
		pairs = append(pairs, pair{e.key, e.value})
	}
	c.mu.Unlock()

	for _, p := range pairs {
		if !fn(p.key, p.value) {
			return
		}
	}
}

// DeleteIf removes entries matching the predicate and returns how many
// were removed.
func (c *Cache[K, V]) DeleteIf(pred func(key K, value V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		e := elem.Value.(*entry[K, V])
		if pred(e.key, e.value) {
			c.order.Remove(elem)
			delete(c.items, e.key)
			removed++
		}
		elem = next
	}
	return removed
}
