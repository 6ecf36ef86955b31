package store

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nymote/irminsule/internal/key"
	"github.com/nymote/irminsule/internal/value"
)

// CachedValueStore wraps a ValueStore with a bounded in-memory LRU read
// cache, for backends where Read is expensive (e.g. DiskValueStore's
// seek-and-decompress). Write always goes through to the backend since
// content addressing already makes it idempotent and cheap to repeat.
type CachedValueStore struct {
	backend ValueStore
	cache   *lru.Cache[key.Key, *value.Value]
}

// NewCachedValueStore wraps backend with an LRU cache holding up to size
// recently read or written values.
func NewCachedValueStore(backend ValueStore, size int) (*CachedValueStore, error) {
	c, err := lru.New[key.Key, *value.Value](size)
	if err != nil {
		return nil, err
	}
	return &CachedValueStore{backend: backend, cache: c}, nil
}

func (s *CachedValueStore) Write(v *value.Value) (key.Key, error) {
	k, err := s.backend.Write(v)
	if err != nil {
		return key.Key{}, err
	}
	s.cache.Add(k, v)
	return k, nil
}

func (s *CachedValueStore) Read(k key.Key) (*value.Value, bool, error) {
	if v, ok := s.cache.Get(k); ok {
		return v, true, nil
	}
	v, ok, err := s.backend.Read(k)
	if err != nil || !ok {
		return v, ok, err
	}
	s.cache.Add(k, v)
	return v, true, nil
}
