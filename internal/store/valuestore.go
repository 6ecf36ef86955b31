package store

import (
	"sync"

	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/value"
)

// ValueStore is the content-addressed K -> Value map of spec.md §4.5: write
// is idempotent and content-addressed, read returns option<Value>, there is
// no delete.
type ValueStore interface {
	// Write computes k = key(v), inserts (k, v) if absent, and returns k.
	Write(v *value.Value) (key.Key, error)
	// Read returns (v, true) iff k is present.
	Read(k key.Key) (*value.Value, bool, error)
}

// MemValueStore is the in-memory ValueStore backend.
type MemValueStore struct {
	mu     sync.RWMutex
	values map[key.Key]*value.Value
}

// NewMemValueStore returns an empty in-memory Value Store.
func NewMemValueStore() *MemValueStore {
	return &MemValueStore{values: make(map[key.Key]*value.Value)}
}

func (s *MemValueStore) Write(v *value.Value) (key.Key, error) {
	k := v.Key()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[k]; !ok {
		s.values[k] = v
	}
	return k, nil
}

func (s *MemValueStore) Read(k key.Key) (*value.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[k]
	return v, ok, nil
}
