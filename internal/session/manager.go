// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifeos/vault/internal/crypto"
	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/internal/store"
	"github.com/lifeos/vault/models"
)

// Config tunes the session lifecycle.
type Config struct {
	// SessionTTL is the absolute lifetime of the durable escrow created on
	// unlock. Expired escrows are treated as absent on resume.
	SessionTTL time.Duration

	// IdleTimeout is how long the vault stays unlocked with no activity
	// before it auto-locks. Every vault operation resets the idle clock.
	IdleTimeout time.Duration

	// AutoLockPoll is how often the background watcher checks the idle
	// clock while unlocked.
	AutoLockPoll time.Duration
}

const (
	defaultSessionTTL   = 15 * time.Minute
	defaultIdleTimeout  = 15 * time.Minute
	defaultAutoLockPoll = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.AutoLockPoll <= 0 {
		c.AutoLockPoll = defaultAutoLockPoll
	}
	return c
}

// Manager owns the unlocked-key lifecycle for one user in one process: it
// enrolls the vault, derives and escrows keys on unlock, resumes sessions
// after a reload, and enforces idle auto-lock. One Manager instance is
// authoritative per process; construct it once and inject it where needed.
//
// The decrypted item key lives only in this struct's memory while the state
// is Unlocked. It is never written to the store in plaintext.
type Manager struct {
	userID int64
	store  store.VaultStore
	crypto crypto.VaultCrypto
	logger *logger.Logger
	cfg    Config

	mu           sync.Mutex
	state        State
	itemKey      []byte
	lastActivity time.Time

	cancelWatch context.CancelFunc
	wg          sync.WaitGroup

	now func() time.Time // injectable clock for tests
}

// NewManager constructs a Manager for userID with the given collaborators.
// No I/O happens until the first operation; the initial state is resolved
// lazily by probing for the salt record.
func NewManager(userID int64, vaultStore store.VaultStore, vaultCrypto crypto.VaultCrypto, log *logger.Logger, cfg Config) *Manager {
	return &Manager{
		userID: userID,
		store:  vaultStore,
		crypto: vaultCrypto,
		logger: log,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// State returns the current lifecycle state, resolving the initial state
// from storage on first use and applying any pending idle expiry.
func (m *Manager) State(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureStateLocked(ctx); err != nil {
		return stateUnknown, err
	}
	m.applyIdleExpiryLocked(ctx)
	return m.state, nil
}

// HasVault reports whether a salt record exists for the user.
func (m *Manager) HasVault(ctx context.Context) (bool, error) {
	state, err := m.State(ctx)
	if err != nil {
		return false, err
	}
	return state != StateNoVault, nil
}

// InitializeVault enrolls a new vault: it generates the salt and item key,
// derives the master key from password, persists the salt record with the
// wrapped item key, creates the session escrow, and transitions to
// Unlocked. Valid only from NoVault; returns ErrAlreadyInitialized
// otherwise. The returned client token is the caller's local session
// reference; it is never persisted by the manager.
func (m *Manager) InitializeVault(ctx context.Context, password string) (models.ClientToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureStateLocked(ctx); err != nil {
		return models.ClientToken{}, err
	}
	if m.state != StateNoVault {
		return models.ClientToken{}, ErrAlreadyInitialized
	}

	salt, err := m.crypto.GenerateSalt()
	if err != nil {
		return models.ClientToken{}, fmt.Errorf("generate salt: %w", err)
	}
	itemKey, err := m.crypto.GenerateItemKey()
	if err != nil {
		return models.ClientToken{}, fmt.Errorf("generate item key: %w", err)
	}

	masterKey := m.crypto.DeriveKey(password, salt)
	wrapped, err := m.crypto.WrapKey(itemKey, masterKey)
	if err != nil {
		return models.ClientToken{}, fmt.Errorf("wrap item key: %w", err)
	}

	record := models.VaultSalt{
		UserID:         m.userID,
		Salt:           salt,
		WrappedItemKey: wrapped,
		CreatedAt:      m.now().UTC(),
	}
	if err = m.store.CreateSalt(ctx, record); err != nil {
		if errors.Is(err, store.ErrSaltAlreadyExists) {
			m.downgradeLocked(StateLocked)
			return models.ClientToken{}, ErrAlreadyInitialized
		}
		return models.ClientToken{}, fmt.Errorf("persist salt record: %w", err)
	}

	token, err := m.escrowLocked(ctx, itemKey)
	if err != nil {
		// The vault now exists but could not be escrowed; fail closed.
		m.downgradeLocked(StateLocked)
		return models.ClientToken{}, err
	}

	m.unlockLocked(itemKey)
	m.logger.Info().Str("func", "Manager.InitializeVault").Int64("user_id", m.userID).
		Msg("vault enrolled and unlocked")
	return token, nil
}

// Unlock derives the master key from password, validates it by unwrapping
// the stored item key (the wrong-password probe), refreshes the session
// escrow, and transitions to Unlocked. Valid from Locked; returns ErrNoVault
// if the vault was never enrolled and ErrInvalidPassword if the probe fails.
// The manager remains Locked on every failure path.
func (m *Manager) Unlock(ctx context.Context, password string) (models.ClientToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	salt, err := m.store.GetSalt(ctx, m.userID)
	if errors.Is(err, store.ErrSaltNotFound) {
		m.downgradeLocked(StateNoVault)
		return models.ClientToken{}, ErrNoVault
	}
	if err != nil {
		return models.ClientToken{}, fmt.Errorf("load salt record: %w", err)
	}

	masterKey := m.crypto.DeriveKey(password, salt.Salt)
	itemKey, err := m.crypto.UnwrapKey(salt.WrappedItemKey, masterKey)
	if err != nil {
		if errors.Is(err, crypto.ErrIntegrity) {
			m.downgradeLocked(StateLocked)
			m.logger.Warn().Str("func", "Manager.Unlock").Int64("user_id", m.userID).
				Msg("unlock rejected: wrong master password")
			return models.ClientToken{}, ErrInvalidPassword
		}
		return models.ClientToken{}, fmt.Errorf("unwrap item key: %w", err)
	}

	token, err := m.escrowLocked(ctx, itemKey)
	if err != nil {
		m.downgradeLocked(StateLocked)
		return models.ClientToken{}, err
	}

	m.unlockLocked(itemKey)
	m.logger.Info().Str("func", "Manager.Unlock").Int64("user_id", m.userID).
		Msg("vault unlocked")
	return token, nil
}

// ResumeSession reconstructs the item key from a previously issued client
// token and the durable escrow, without prompting for the master password.
// Returns the resulting state: Unlocked on success; Locked when the escrow
// is absent, expired, or does not match the token (these are not errors —
// the caller re-prompts for the password); NoVault when the vault was never
// enrolled. A successful resume renews the escrow expiry, so repeated calls
// are idempotent.
func (m *Manager) ResumeSession(ctx context.Context, token models.ClientToken) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.store.GetSalt(ctx, m.userID); err != nil {
		if errors.Is(err, store.ErrSaltNotFound) {
			m.downgradeLocked(StateNoVault)
			return m.state, nil
		}
		return stateUnknown, fmt.Errorf("load salt record: %w", err)
	}

	escrow, err := m.store.GetSession(ctx, m.userID)
	if errors.Is(err, store.ErrSessionNotFound) {
		m.downgradeLocked(StateLocked)
		return m.state, nil
	}
	if err != nil {
		return stateUnknown, fmt.Errorf("load session escrow: %w", err)
	}

	if escrow.SessionID != token.SessionID {
		m.downgradeLocked(StateLocked)
		return m.state, nil
	}
	if escrow.Expired(m.now()) {
		// Lazy expiry: the expired record is inert, purge it.
		if err = m.store.DeleteSession(ctx, m.userID); err != nil {
			m.logger.Warn().Err(err).Str("func", "Manager.ResumeSession").
				Msg("failed to purge expired session escrow")
		}
		m.downgradeLocked(StateLocked)
		return m.state, nil
	}

	itemKey, err := m.crypto.UnwrapKey(escrow.EscrowedKey, token.Secret)
	if err != nil {
		if errors.Is(err, crypto.ErrIntegrity) {
			m.downgradeLocked(StateLocked)
			return m.state, nil
		}
		return stateUnknown, fmt.Errorf("unwrap escrowed key: %w", err)
	}

	// Renew the escrow so an active user is not logged out mid-session.
	escrow.ExpiresAt = m.now().UTC().Add(m.cfg.SessionTTL)
	if err = m.store.PutSession(ctx, escrow); err != nil {
		return stateUnknown, fmt.Errorf("renew session escrow: %w", err)
	}

	m.unlockLocked(itemKey)
	m.logger.Debug().Str("func", "Manager.ResumeSession").Int64("user_id", m.userID).
		Msg("session resumed without password prompt")
	return m.state, nil
}

// Lock discards the in-memory item key, deletes the session escrow, and
// transitions to Locked. Calling Lock while already locked is a no-op.
func (m *Manager) Lock(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lockLocked(ctx)
}

// Reset destroys the vault entirely: session escrow, every envelope, and
// the salt record. All existing ciphertext becomes unrecoverable. The
// manager transitions to NoVault.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteSession(ctx, m.userID); err != nil {
		return fmt.Errorf("delete session escrow: %w", err)
	}
	if err := m.store.DeleteAllEnvelopes(ctx, m.userID); err != nil {
		return fmt.Errorf("delete envelopes: %w", err)
	}
	if err := m.store.DeleteSalt(ctx, m.userID); err != nil && !errors.Is(err, store.ErrSaltNotFound) {
		return fmt.Errorf("delete salt record: %w", err)
	}

	m.zeroKeyLocked()
	m.stopWatchLocked()
	m.state = StateNoVault
	m.logger.Info().Str("func", "Manager.Reset").Int64("user_id", m.userID).
		Msg("vault reset; all envelopes invalidated")
	return nil
}

// ItemKey returns a copy of the in-memory item key for one encryption or
// decryption pass and resets the idle clock. Returns ErrVaultLocked unless
// the state is Unlocked; a pending idle expiry is applied first.
func (m *Manager) ItemKey(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applyIdleExpiryLocked(ctx)
	if m.state != StateUnlocked {
		return nil, ErrVaultLocked
	}

	m.lastActivity = m.now()
	return append([]byte(nil), m.itemKey...), nil
}

// Close stops the auto-lock watcher and discards key material without
// touching the durable escrow, for process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	m.zeroKeyLocked()
	if m.state == StateUnlocked {
		m.state = StateLocked
	}
	m.stopWatchLocked()
	m.mu.Unlock()
	m.wg.Wait()
}

// ── internals ────────────────────────────────────────────────────────────────

// ensureStateLocked resolves the lazy initial state by probing for the salt
// record. Caller holds m.mu.
func (m *Manager) ensureStateLocked(ctx context.Context) error {
	if m.state != stateUnknown {
		return nil
	}

	_, err := m.store.GetSalt(ctx, m.userID)
	switch {
	case errors.Is(err, store.ErrSaltNotFound):
		m.state = StateNoVault
	case err != nil:
		return fmt.Errorf("probe salt record: %w", err)
	default:
		m.state = StateLocked
	}
	return nil
}

// escrowLocked wraps itemKey under a fresh random session secret and
// persists the escrow record. Caller holds m.mu.
func (m *Manager) escrowLocked(ctx context.Context, itemKey []byte) (models.ClientToken, error) {
	secret, err := m.crypto.GenerateItemKey()
	if err != nil {
		return models.ClientToken{}, fmt.Errorf("generate session secret: %w", err)
	}
	escrowed, err := m.crypto.WrapKey(itemKey, secret)
	if err != nil {
		return models.ClientToken{}, fmt.Errorf("escrow item key: %w", err)
	}

	now := m.now().UTC()
	escrow := models.VaultSession{
		SessionID:   newSessionID(),
		UserID:      m.userID,
		EscrowedKey: escrowed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.cfg.SessionTTL),
	}
	if err = m.store.PutSession(ctx, escrow); err != nil {
		return models.ClientToken{}, fmt.Errorf("persist session escrow: %w", err)
	}

	return models.ClientToken{SessionID: escrow.SessionID, Secret: secret}, nil
}

// unlockLocked installs itemKey, moves to Unlocked, and (re)starts the idle
// watcher. Caller holds m.mu.
func (m *Manager) unlockLocked(itemKey []byte) {
	m.zeroKeyLocked()
	m.itemKey = append([]byte(nil), itemKey...)
	m.state = StateUnlocked
	m.lastActivity = m.now()
	m.startWatchLocked()
}

// downgradeLocked moves to state s on a failure path, discarding any
// in-memory key and stopping the idle watcher. The durable escrow is left
// alone. Caller holds m.mu.
func (m *Manager) downgradeLocked(s State) {
	m.zeroKeyLocked()
	m.stopWatchLocked()
	m.state = s
}

// lockLocked is the shared lock path for explicit and idle locking. Caller
// holds m.mu.
func (m *Manager) lockLocked(ctx context.Context) error {
	if m.state != StateUnlocked {
		return nil
	}

	m.zeroKeyLocked()
	m.state = StateLocked
	m.stopWatchLocked()

	// The watcher's own tick reaches here carrying the context that
	// stopWatchLocked just cancelled; the escrow deletion must still go
	// through or a stolen client token could resume until the TTL lapses.
	if err := m.store.DeleteSession(context.WithoutCancel(ctx), m.userID); err != nil {
		return fmt.Errorf("delete session escrow: %w", err)
	}
	m.logger.Info().Str("func", "Manager.lockLocked").Int64("user_id", m.userID).
		Msg("vault locked")
	return nil
}

// applyIdleExpiryLocked locks the vault if the idle window has elapsed.
// Caller holds m.mu.
func (m *Manager) applyIdleExpiryLocked(ctx context.Context) {
	if m.state != StateUnlocked {
		return
	}
	if m.now().Sub(m.lastActivity) < m.cfg.IdleTimeout {
		return
	}

	m.logger.Info().Str("func", "Manager.applyIdleExpiryLocked").Int64("user_id", m.userID).
		Msg("idle timeout reached, auto-locking vault")
	if err := m.lockLocked(ctx); err != nil {
		m.logger.Warn().Err(err).Str("func", "Manager.applyIdleExpiryLocked").
			Msg("auto-lock failed to delete session escrow")
	}
}

// startWatchLocked launches the background idle watcher. Any previous
// watcher is stopped first. Caller holds m.mu.
func (m *Manager) startWatchLocked() {
	m.stopWatchLocked()

	watchCtx, cancel := context.WithCancel(context.Background())
	m.cancelWatch = cancel
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		t := time.NewTicker(m.cfg.AutoLockPoll)
		defer t.Stop()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-t.C:
				m.mu.Lock()
				m.applyIdleExpiryLocked(watchCtx)
				done := m.state != StateUnlocked
				m.mu.Unlock()
				if done {
					return
				}
			}
		}
	}()
}

// stopWatchLocked cancels the idle watcher if one is running. Caller holds
// m.mu.
func (m *Manager) stopWatchLocked() {
	if m.cancelWatch != nil {
		m.cancelWatch()
		m.cancelWatch = nil
	}
}

// zeroKeyLocked overwrites and drops the in-memory key. Caller holds m.mu.
func (m *Manager) zeroKeyLocked() {
	for i := range m.itemKey {
		m.itemKey[i] = 0
	}
	m.itemKey = nil
}

func newSessionID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
