// Package shardmap provides a string-keyed concurrent map split into
// independently locked shards.
package shardmap

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the shard count used when New is given a non-positive value.
const DefaultShards = 32

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Map is a concurrent map. Operations on keys in different shards never
// contend; operations on one key are serialized by its shard lock.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint64
}

// New creates a map with n shards, rounded up to a power of two.
func New[V any](n int) *Map[V] {
	if n <= 0 {
		n = DefaultShards
	}
	size := 1
	for size < n {
		size <<= 1
	}

	m := &Map[V]{
		shards: make([]*shard[V], size),
		mask:   uint64(size - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[xxhash.Sum64String(key)&m.mask]
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Update replaces the value under key with fn(old, ok) while holding the
// shard lock, so concurrent updates of the same key never interleave.
func (m *Map[V]) Update(key string, fn func(old V, ok bool) V) V {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.items[key]
	v := fn(old, ok)
	s.items[key] = v
	return v
}

// Len returns the number of stored keys.
func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// Range calls fn for every key/value pair until fn returns false. Each shard
// is copied under its read lock and fn runs without any lock held, so fn may
// call back into the map.
func (m *Map[V]) Range(fn func(key string, v V) bool) {
	type pair struct {
		key string
		v   V
	}

	for _, s := range m.shards {
		s.mu.RLock()
		pairs := make([]pair, 0, len(s.items))
		for k, v := range s.items {
			pairs = append(pairs, pair{k, v})
		}
		s.mu.RUnlock()

		for _, p := range pairs {
			if !fn(p.key, p.v) {
				return
			}
		}
	}
}
