package exchange

import (
	"context"
	"sync"
	"time"
)

var _ Store = &MemoryStore{}

// MemoryStore is a process-local Store with real expiry semantics. It is
// suitable for tests and single-instance deployments; anything serving
// login and callback from separate processes must use RedisStore instead.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	exchange  *PendingExchange
	token     *ProviderToken
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// live reports whether the entry under key exists and has not expired,
// dropping it when stale. Callers must hold mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) PutExchange(_ context.Context, pe *PendingExchange) error {
	cp := *pe
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[exchangeKeyPrefix+pe.State] = memoryEntry{
		exchange:  &cp,
		expiresAt: s.now().Add(ExchangeTTL),
	}
	return nil
}

func (s *MemoryStore) ConsumeExchange(_ context.Context, state string) (*PendingExchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := exchangeKeyPrefix + state
	e, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	delete(s.data, key)
	return e.exchange, nil
}

func (s *MemoryStore) PutProviderToken(_ context.Context, accountID string, pt *ProviderToken, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultProviderTokenTTL
	}
	cp := *pt
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[tokenKeyPrefix+accountID] = memoryEntry{
		token:     &cp,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) GetProviderToken(_ context.Context, accountID string) (*ProviderToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(tokenKeyPrefix + accountID)
	if !ok {
		return nil, nil
	}
	return e.token, nil
}

// Len reports the number of stored entries, expired or not. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
