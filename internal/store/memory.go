package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lifeos/vault/models"
)

// memoryStore is a map-backed [VaultStore]. It is the default store for
// tests and ephemeral single-process use; nothing survives process exit.
type memoryStore struct {
	mu        sync.RWMutex
	salts     map[int64]models.VaultSalt
	envelopes map[int64]map[string]models.EncryptedVaultItem
	sessions  map[int64]models.VaultSession
}

// NewMemoryStore constructs an empty in-memory [VaultStore].
func NewMemoryStore() VaultStore {
	return &memoryStore{
		salts:     make(map[int64]models.VaultSalt),
		envelopes: make(map[int64]map[string]models.EncryptedVaultItem),
		sessions:  make(map[int64]models.VaultSession),
	}
}

func (m *memoryStore) GetSalt(_ context.Context, userID int64) (models.VaultSalt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	salt, ok := m.salts[userID]
	if !ok {
		return models.VaultSalt{}, ErrSaltNotFound
	}
	return salt, nil
}

func (m *memoryStore) CreateSalt(_ context.Context, salt models.VaultSalt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.salts[salt.UserID]; ok {
		return ErrSaltAlreadyExists
	}
	m.salts[salt.UserID] = salt
	return nil
}

func (m *memoryStore) DeleteSalt(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.salts[userID]; !ok {
		return ErrSaltNotFound
	}
	delete(m.salts, userID)
	return nil
}

func (m *memoryStore) ListEnvelopes(_ context.Context, userID int64) ([]models.EncryptedVaultItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]models.EncryptedVaultItem, 0, len(m.envelopes[userID]))
	for _, item := range m.envelopes[userID] {
		items = append(items, item)
	}

	// Map iteration order is random; keep listings stable.
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (m *memoryStore) GetEnvelope(_ context.Context, userID int64, id string) (models.EncryptedVaultItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.envelopes[userID][id]
	if !ok {
		return models.EncryptedVaultItem{}, ErrItemNotFound
	}
	return item, nil
}

func (m *memoryStore) PutEnvelope(_ context.Context, item models.EncryptedVaultItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.envelopes[item.UserID] == nil {
		m.envelopes[item.UserID] = make(map[string]models.EncryptedVaultItem)
	}
	m.envelopes[item.UserID][item.ID] = item
	return nil
}

func (m *memoryStore) DeleteEnvelope(_ context.Context, userID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.envelopes[userID][id]; !ok {
		return ErrItemNotFound
	}
	delete(m.envelopes[userID], id)
	return nil
}

func (m *memoryStore) DeleteAllEnvelopes(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.envelopes, userID)
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, userID int64) (models.VaultSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[userID]
	if !ok {
		return models.VaultSession{}, ErrSessionNotFound
	}
	return session, nil
}

func (m *memoryStore) PutSession(_ context.Context, session models.VaultSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.UserID] = session
	return nil
}

func (m *memoryStore) DeleteSession(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}
