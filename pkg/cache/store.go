package cache

import (
	"context"
	"sync"
	"time"

	"github.com/zen-systems/unigate/pkg/schema"
)

// Store is a TTL'd response store. Implementations must never return
// an entry past its expiry.
type Store interface {
	Get(ctx context.Context, key string) (*schema.UnifiedResponse, bool)
	Put(ctx context.Context, key string, resp *schema.UnifiedResponse, ttl time.Duration)
	Sweep(ctx context.Context)
}

type memoryEntry struct {
	resp      *schema.UnifiedResponse
	expiresAt time.Time
}

// MemoryStore is the default in-process store. Expired entries are
// dropped lazily on Get and eagerly by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

// Get returns a live entry, evicting it if expired.
func (s *MemoryStore) Get(_ context.Context, key string) (*schema.UnifiedResponse, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && s.now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.resp, true
}

// Put stores a response until its TTL elapses. A non-positive TTL is a no-op.
func (s *MemoryStore) Put(_ context.Context, key string, resp *schema.UnifiedResponse, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = memoryEntry{resp: resp, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Sweep removes every expired entry.
func (s *MemoryStore) Sweep(_ context.Context) {
	now := s.now()
	s.mu.Lock()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
