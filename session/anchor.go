// Package session remembers which member is "current" across requests or CLI runs.
package session

import (
	"context"
	"sync"
	"time"
)

const defaultTTL = 30 * 24 * time.Hour

// Anchor is a single durable slot holding the current member id, or "" when
// nobody is signed in.
type Anchor interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, memberID string) error
	Clear(ctx context.Context) error
}

// Store hands out one Anchor per browser session key.
type Store interface {
	Slot(key string) Anchor
}

// MemorySlot is an in-process Anchor, lost on restart.
type MemorySlot struct {
	mu sync.Mutex
	id string
}

// NewMemorySlot returns an empty slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (s *MemorySlot) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *MemorySlot) Save(ctx context.Context, memberID string) error {
	s.mu.Lock()
	s.id = memberID
	s.mu.Unlock()
	return nil
}

func (s *MemorySlot) Clear(ctx context.Context) error {
	return s.Save(ctx, "")
}

type memoryEntry struct {
	memberID string
	expires  time.Time
}

// MemoryStore keeps per-session member ids in memory (single-instance only).
// Only sessions that saved a member are held, each for ttl since last use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an empty store whose sessions expire after ttl of
// inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

// Slot returns a view of key. Nothing is stored until the slot is saved.
func (s *MemoryStore) Slot(key string) Anchor {
	return &memoryStoreSlot{store: s, key: key}
}

// Len reports how many sessions are held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops expired sessions. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
		}
	}
}

func (s *MemoryStore) load(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		return ""
	}
	if now.After(e.expires) {
		delete(s.entries, key)
		return ""
	}
	e.expires = now.Add(s.ttl)
	s.entries[key] = e
	return e.memberID
}

func (s *MemoryStore) save(key, memberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	if memberID == "" {
		delete(s.entries, key)
		return
	}
	s.entries[key] = memoryEntry{memberID: memberID, expires: now.Add(s.ttl)}
}

type memoryStoreSlot struct {
	store *MemoryStore
	key   string
}

func (a *memoryStoreSlot) Load(ctx context.Context) (string, error) {
	return a.store.load(a.key), nil
}

func (a *memoryStoreSlot) Save(ctx context.Context, memberID string) error {
	a.store.save(a.key, memberID)
	return nil
}

func (a *memoryStoreSlot) Clear(ctx context.Context) error {
	return a.Save(ctx, "")
}
