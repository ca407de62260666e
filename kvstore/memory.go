package kvstore

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// MemoryStore is an in-process Store of bounded size. Least-recently used
// keys are evicted once the size is reached, and expired keys are evicted
// as they're read.
type MemoryStore struct {
	cache *lru.Cache
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a MemoryStore of the given size, which must be > 0.
func NewMemoryStore(size int) *MemoryStore {
	var cache, err = lru.New(size)
	if err != nil {
		panic(err.Error()) // Only errors on size <= 0.
	}
	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := s.cache.Get(key); ok {
		if e := v.(memoryEntry); !e.expires.IsZero() && !timeNow().Before(e.expires) {
			s.cache.Remove(key)
		} else {
			return append([]byte(nil), e.value...), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var e = memoryEntry{value: append([]byte(nil), value...)}
	if ttl != 0 {
		e.expires = timeNow().Add(ttl)
	}
	s.cache.Add(key, e)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

func (s *MemoryStore) FlushAll(context.Context) error {
	s.cache.Purge()
	return nil
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

var timeNow = time.Now
