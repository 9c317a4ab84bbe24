package core

import (
	"strings"
	"sync"
	"time"
)

type metadataEntry struct {
	value map[string]any
	timer *time.Timer
}

// MemoryMetadataStore holds transaction metadata between creation and
// verification. Each entry schedules a one-shot deletion at insert
// time; an explicit Delete stops the pending timer. Get performs no
// expiry check of its own.
type MemoryMetadataStore struct {
	mu         sync.Mutex
	entries    map[string]metadataEntry
	defaultTTL time.Duration
}

func NewMemoryMetadataStore(defaultTTL time.Duration) *MemoryMetadataStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultMetadataTTL
	}
	return &MemoryMetadataStore{
		entries:    map[string]metadataEntry{},
		defaultTTL: defaultTTL,
	}
}

func (s *MemoryMetadataStore) Put(key string, value map[string]any, ttl time.Duration) {
	if s == nil {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[key]; ok && existing.timer != nil {
		existing.timer.Stop()
	}
	s.entries[key] = metadataEntry{
		value: CloneMetadata(value),
		timer: time.AfterFunc(ttl, func() { s.Delete(key) }),
	}
}

func (s *MemoryMetadataStore) Get(key string) (map[string]any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return CloneMetadata(entry.value), true
}

// Delete removes an entry and stops its expiry timer. Deleting an
// absent key is a no-op, so a deferred expiry never races destructively
// with an explicit delete.
func (s *MemoryMetadataStore) Delete(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[strings.TrimSpace(key)]
	if !ok {
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(s.entries, strings.TrimSpace(key))
}

func (s *MemoryMetadataStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ MetadataStore = (*MemoryMetadataStore)(nil)
