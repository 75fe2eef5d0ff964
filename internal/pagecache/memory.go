package pagecache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// DefaultMaxEntries bounds a MemoryStore built by NewMemoryStore.
const DefaultMaxEntries = 300

// MemoryStore is an in-process Store for single-instance deployments. It
// holds at most maxEntries live entries; a full store drops expired entries
// first and then a third of the rest.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	now        func() time.Time
	maxEntries int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now, maxEntries: DefaultMaxEntries}
}

// WithMaxEntries changes the entry cap. n < 1 is treated as 1.
func (s *MemoryStore) WithMaxEntries(n int) *MemoryStore {
	if n < 1 {
		n = 1
	}
	s.maxEntries = n
	return s
}

// Len reports the number of entries held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// WithClock replaces the time source; used by tests to move past expiry.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok && len(s.entries) >= s.maxEntries {
		s.cull()
	}
	s.entries[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: s.now().Add(ttl)}
	return nil
}

// cull makes room for one entry. Caller holds s.mu.
func (s *MemoryStore) cull() {
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	if len(s.entries) < s.maxEntries {
		return
	}
	drop := len(s.entries)/3 + 1
	for k := range s.entries {
		if drop == 0 {
			break
		}
		delete(s.entries, k)
		drop--
	}
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}
