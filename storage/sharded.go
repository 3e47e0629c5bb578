package storage

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidShardCount is returned when a store is created with fewer than one shard
var ErrInvalidShardCount = errors.New("shard count must be greater than zero")

// DefaultShardCount is the number of shards used when none is configured
const DefaultShardCount = 16

// Cloner is implemented by values that need a deep copy when read out of
// a store, typically because they hold slices or maps.
type Cloner[V any] interface {
	Clone() V
}

// shard is one partition of a Sharded store with its own lock
type shard[V any] struct {
	mu   sync.Mutex
	data map[string]V
}

// Sharded is an in-memory key-value store split into a fixed number of
// independently locked shards. A key always maps to the same shard, so
// operations on keys in different shards never contend. Every operation
// holds at most one shard lock; there is no cross-shard atomicity.
type Sharded[V any] struct {
	shards []shard[V]
	clone  func(V) V
}

// ShardedOption configures a Sharded store
type ShardedOption[V any] func(*Sharded[V])

// WithCloneFunc sets the function used to copy values out of the store
func WithCloneFunc[V any](fn func(V) V) ShardedOption[V] {
	return func(s *Sharded[V]) {
		s.clone = fn
	}
}

// NewSharded creates a store with count shards. Values implementing
// Cloner are deep-copied on Get unless WithCloneFunc overrides it.
func NewSharded[V any](count int, opts ...ShardedOption[V]) (*Sharded[V], error) {
	if count <= 0 {
		return nil, ErrInvalidShardCount
	}

	s := &Sharded[V]{
		shards: make([]shard[V], count),
	}
	for i := range s.shards {
		s.shards[i].data = make(map[string]V)
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.clone == nil {
		var zero V
		if _, ok := any(zero).(Cloner[V]); ok {
			s.clone = func(v V) V {
				return any(v).(Cloner[V]).Clone()
			}
		}
	}

	return s, nil
}

// NewBytes creates a store of byte slices that copies values on Get
func NewBytes(count int) (*Sharded[[]byte], error) {
	return NewSharded[[]byte](count, WithCloneFunc[[]byte](cloneBytes))
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ShardFor returns the index of the shard that owns key
func (s *Sharded[V]) ShardFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(s.shards)))
}

// ShardCount returns the number of shards
func (s *Sharded[V]) ShardCount() int {
	return len(s.shards)
}

// Insert stores value under key, replacing any previous value
func (s *Sharded[V]) Insert(key string, value V) {
	sh := &s.shards[s.ShardFor(key)]

	sh.mu.Lock()
	sh.data[key] = value
	sh.mu.Unlock()
}

// Get returns a copy of the value stored under key
func (s *Sharded[V]) Get(key string) (V, bool) {
	sh := &s.shards[s.ShardFor(key)]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	value, ok := sh.data[key]
	if ok && s.clone != nil {
		value = s.clone(value)
	}
	return value, ok
}

// Len returns the number of keys. Shards are counted one at a time, so
// the result is not a consistent snapshot under concurrent inserts.
func (s *Sharded[V]) Len() int {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		total += len(sh.data)
		sh.mu.Unlock()
	}
	return total
}
