// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/vault/internal/crypto"
	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/internal/store"
	"github.com/lifeos/vault/models"
)

const (
	testUserID   = int64(42)
	testPassword = "correct-horse"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, vaultStore store.VaultStore) (*Manager, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	m := NewManager(testUserID, vaultStore, crypto.NewVaultCrypto(16), logger.Nop(), Config{
		SessionTTL:   15 * time.Minute,
		IdleTimeout:  15 * time.Minute,
		AutoLockPoll: time.Hour, // tests drive expiry through the fake clock
	})
	m.now = clock.Now
	t.Cleanup(m.Close)
	return m, clock
}

func TestManager_InitializeVault(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	state, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNoVault, state)

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token.SessionID)
	assert.Len(t, token.Secret, 32)

	state, err = m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, state)

	salt, err := vaultStore.GetSalt(ctx, testUserID)
	require.NoError(t, err)
	assert.Len(t, salt.Salt, 16)
	assert.NotEmpty(t, salt.WrappedItemKey)

	_, err = m.InitializeVault(ctx, "another-password")
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestManager_Unlock_WrongThenRightPassword(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	_, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)
	require.NoError(t, m.Lock(ctx))

	_, err = m.ItemKey(ctx)
	require.ErrorIs(t, err, ErrVaultLocked)

	_, err = m.Unlock(ctx, "wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)

	state, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	_, err = m.Unlock(ctx, testPassword)
	require.NoError(t, err)

	key, err := m.ItemKey(ctx)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestManager_Unlock_NoVault(t *testing.T) {
	m, _ := newTestManager(t, store.NewMemoryStore())

	_, err := m.Unlock(context.Background(), testPassword)
	require.ErrorIs(t, err, ErrNoVault)
}

// Unlock must yield the same item key enrollment produced, or existing
// envelopes would become undecryptable.
func TestManager_Unlock_RecoversSameItemKey(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	_, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)
	enrolled, err := m.ItemKey(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Lock(ctx))
	_, err = m.Unlock(ctx, testPassword)
	require.NoError(t, err)

	unlocked, err := m.ItemKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, enrolled, unlocked)
}

func TestManager_ResumeSession_AcrossRestart(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)
	enrolled, err := m.ItemKey(ctx)
	require.NoError(t, err)

	// A fresh manager stands in for a reloaded process.
	restarted, _ := newTestManager(t, vaultStore)
	state, err := restarted.ResumeSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, state)

	resumed, err := restarted.ItemKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, enrolled, resumed)
}

func TestManager_ResumeSession_Idempotent(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)
	first, err := m.ItemKey(ctx)
	require.NoError(t, err)

	state, err := m.ResumeSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, state)

	state, err = m.ResumeSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, state)

	again, err := m.ItemKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestManager_ResumeSession_ExpiredEscrow(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, clock := newTestManager(t, vaultStore)

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)

	restarted, restartedClock := newTestManager(t, vaultStore)
	restartedClock.Advance(16 * time.Minute)

	state, err := restarted.ResumeSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	// The expired escrow must have been purged.
	_, err = vaultStore.GetSession(ctx, testUserID)
	require.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestManager_ResumeSession_WrongSecret(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)

	tampered := token
	tampered.Secret = append([]byte(nil), token.Secret...)
	tampered.Secret[0] ^= 0xFF

	restarted, _ := newTestManager(t, vaultStore)
	state, err := restarted.ResumeSession(ctx, tampered)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)
}

func TestManager_ResumeSession_NoVault(t *testing.T) {
	m, _ := newTestManager(t, store.NewMemoryStore())

	state, err := m.ResumeSession(context.Background(), models.ClientToken{SessionID: "x", Secret: []byte("y")})
	require.NoError(t, err)
	assert.Equal(t, StateNoVault, state)
}

func TestManager_Lock_DeletesEscrow(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)
	require.NoError(t, m.Lock(ctx))

	_, err = vaultStore.GetSession(ctx, testUserID)
	require.ErrorIs(t, err, store.ErrSessionNotFound)

	state, err := m.ResumeSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	// Locking twice is a no-op.
	require.NoError(t, m.Lock(ctx))
}

func TestManager_AutoLock_AfterIdleTimeout(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, clock := newTestManager(t, vaultStore)

	_, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)

	// Activity keeps the vault unlocked.
	clock.Advance(10 * time.Minute)
	_, err = m.ItemKey(ctx)
	require.NoError(t, err)

	clock.Advance(14 * time.Minute)
	_, err = m.ItemKey(ctx)
	require.NoError(t, err)

	// No activity past the idle window locks the vault.
	clock.Advance(15 * time.Minute)
	_, err = m.ItemKey(ctx)
	require.ErrorIs(t, err, ErrVaultLocked)

	state, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	// Unlocking again recovers.
	_, err = m.Unlock(ctx, testPassword)
	require.NoError(t, err)
	_, err = m.ItemKey(ctx)
	require.NoError(t, err)
}

// ctxAwareStore rejects calls whose context is already done, the way a SQL
// driver or HTTP client would.
type ctxAwareStore struct {
	store.VaultStore
}

func (s *ctxAwareStore) DeleteSession(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.VaultStore.DeleteSession(ctx, userID)
}

// The background watcher cancels its own context when it locks the vault;
// the escrow deletion must survive that cancellation or the session stays
// resumable until its TTL lapses.
func TestManager_AutoLock_WatcherDeletesEscrow(t *testing.T) {
	ctx := context.Background()
	vaultStore := &ctxAwareStore{VaultStore: store.NewMemoryStore()}
	m := NewManager(testUserID, vaultStore, crypto.NewVaultCrypto(16), logger.Nop(), Config{
		SessionTTL:   time.Minute,
		IdleTimeout:  20 * time.Millisecond,
		AutoLockPoll: 5 * time.Millisecond,
	})
	t.Cleanup(m.Close)

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := vaultStore.GetSession(ctx, testUserID)
		return errors.Is(err, store.ErrSessionNotFound)
	}, 2*time.Second, 5*time.Millisecond, "watcher must delete the escrow when it auto-locks")

	state, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	state, err = m.ResumeSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)
}

// A failed unlock attempt against a currently unlocked manager must not
// leave the previous key material in memory or the watcher running.
func TestManager_Unlock_WrongPasswordDiscardsKey(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, store.NewMemoryStore())

	_, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)

	_, err = m.Unlock(ctx, "wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)

	m.mu.Lock()
	assert.Nil(t, m.itemKey)
	assert.Nil(t, m.cancelWatch)
	m.mu.Unlock()

	state, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)
}

// Same invariant for the resume failure paths.
func TestManager_ResumeSession_MismatchDiscardsKey(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, store.NewMemoryStore())

	token, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)

	stale := token
	stale.SessionID = "not-the-current-session"

	state, err := m.ResumeSession(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, state)

	m.mu.Lock()
	assert.Nil(t, m.itemKey)
	assert.Nil(t, m.cancelWatch)
	m.mu.Unlock()

	_, err = m.ItemKey(ctx)
	require.ErrorIs(t, err, ErrVaultLocked)
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	vaultStore := store.NewMemoryStore()
	m, _ := newTestManager(t, vaultStore)

	_, err := m.InitializeVault(ctx, testPassword)
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx))

	state, err := m.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNoVault, state)

	_, err = vaultStore.GetSalt(ctx, testUserID)
	require.ErrorIs(t, err, store.ErrSaltNotFound)

	// Re-enrollment starts a new vault.
	_, err = m.InitializeVault(ctx, "new-password")
	require.NoError(t, err)
}
