package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Recent keeps recently produced values in memory, keyed by ID, with a
// secondary index from content hash to ID. Values are stored as given and
// must not be modified afterwards.
type Recent[V any] struct {
	lru *expirable.LRU[string, recentEntry[V]]

	mu     sync.Mutex
	byHash map[string]string
}

type recentEntry[V any] struct {
	hash  string
	value V
}

// NewRecent returns a store holding at most size values for ttl each. A
// zero ttl keeps values until they are evicted by size.
func NewRecent[V any](size int, ttl time.Duration) *Recent[V] {
	r := &Recent[V]{byHash: make(map[string]string)}
	// The eviction callback runs under the LRU's lock; it only touches
	// byHash, and no method holds mu while calling into the LRU.
	r.lru = expirable.NewLRU[string, recentEntry[V]](size, r.evicted, ttl)
	return r
}

func (r *Recent[V]) evicted(id string, e recentEntry[V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byHash[e.hash] == id {
		delete(r.byHash, e.hash)
	}
}

// Add stores value under id and indexes it by hash. An empty hash skips the
// index.
func (r *Recent[V]) Add(id, hash string, value V) {
	r.lru.Add(id, recentEntry[V]{hash: hash, value: value})
	if hash == "" {
		return
	}
	r.mu.Lock()
	r.byHash[hash] = id
	r.mu.Unlock()
}

// Get returns the value stored under id.
func (r *Recent[V]) Get(id string) (V, bool) {
	e, ok := r.lru.Get(id)
	return e.value, ok
}

// Lookup returns the most recent value whose content hash is hash.
func (r *Recent[V]) Lookup(hash string) (string, V, bool) {
	var zero V
	r.mu.Lock()
	id, ok := r.byHash[hash]
	r.mu.Unlock()
	if !ok {
		return "", zero, false
	}
	e, ok := r.lru.Get(id)
	if !ok {
		r.mu.Lock()
		if r.byHash[hash] == id {
			delete(r.byHash, hash)
		}
		r.mu.Unlock()
		return "", zero, false
	}
	return id, e.value, true
}

// Remove drops id from the store.
func (r *Recent[V]) Remove(id string) {
	r.lru.Remove(id)
}

// Len returns the number of stored values, expired ones included until they
// are purged.
func (r *Recent[V]) Len() int {
	return r.lru.Len()
}
