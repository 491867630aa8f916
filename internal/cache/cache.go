// Package cache provides the short-TTL response cache consulted by the
// data-fetching collaborators (market data, RSS feeds, news search).
//
// The contract is deliberately small: Get returns a value only while its
// per-entry TTL has not elapsed; an expired entry behaves as a miss and is
// purged. The in-memory implementation additionally bounds its size with
// least-recently-used eviction so that caches keyed by request parameters
// (symbol, feed URL hash, query string) cannot grow without limit over the
// process lifetime.
//
// Values are opaque byte slices; call sites cache the JSON they fetched from
// the collaborator. A Redis-backed implementation lives in redis.go for
// deployments that already run Redis.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Store is the response-cache contract shared by all backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached value for key, or ok=false on a miss.
	// A value whose TTL has elapsed is a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool)

	// Set stores value under key for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// entry is a single cached value with its absolute expiry.
type entry struct {
	key     string
	value   []byte
	expires time.Time
}

// Memory is an in-process Store bounded by capacity with LRU eviction.
//
// Expiry is checked on every Get regardless of eviction state, so a stale
// entry is never returned even if it has not been evicted yet. This type is
// safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used

	now func() time.Time // test seam
}

// NewMemory constructs a Memory store holding at most capacity entries.
// Values of capacity <= 0 are coerced to 1.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get implements Store. An expired entry is purged and reported as a miss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if m.now().After(e.expires) {
		m.order.Remove(el)
		delete(m.items, key)
		return nil, false
	}
	m.order.MoveToFront(el)
	return e.value, true
}

// Set implements Store. Storing an existing key overwrites it in place and
// refreshes its recency; when the store is full the least-recently-used
// entry is evicted first.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	expires := m.now().Add(ttl)
	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expires = expires
		m.order.MoveToFront(el)
		return
	}
	if m.order.Len() >= m.capacity {
		oldest := m.order.Back()
		if oldest != nil {
			m.order.Remove(oldest)
			delete(m.items, oldest.Value.(*entry).key)
		}
	}
	m.items[key] = m.order.PushFront(&entry{key: key, value: value, expires: expires})
}

// Len reports the current number of entries, expired ones included until
// their next lookup. Intended for tests and the /status report.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
