package account

import (
	"context"
	"sync"
	"time"
)

var _ Store = &MemoryStore{}

// MemoryStore is an in-process Store for tests. The mutex gives it the same
// atomic-insert guarantee the Mongo unique index provides.
type MemoryStore struct {
	mu         sync.Mutex
	byID       map[string]*Account
	byExternal map[string]string
}

// NewMemoryStore returns an empty in-process account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Account),
		byExternal: make(map[string]string),
	}
}

func (m *MemoryStore) GetByID(_ context.Context, accountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[accountID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) GetByExternalID(_ context.Context, externalAccountID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byExternal[externalAccountID]
	if !ok {
		return nil, nil
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *MemoryStore) Insert(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byExternal[a.ExternalAccountID]; exists {
		return ErrDuplicateExternalID
	}
	cp := *a
	m.byID[a.AccountID] = &cp
	m.byExternal[a.ExternalAccountID] = a.AccountID
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[accountID]; ok {
		a.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Len reports the number of stored accounts. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
