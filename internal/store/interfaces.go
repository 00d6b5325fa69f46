package store

import (
	"context"

	"github.com/lifeos/vault/models"
)

// VaultStore is the persistence contract the vault core consumes. It stores
// only ciphertext and public metadata: per-user salt records, encrypted item
// envelopes, and session escrow records. Implementations never see plaintext
// item data, master passwords, or raw keys.
//
// Implementations in this package: an in-memory store (tests, ephemeral
// use), a local SQLite store, and a PostgreSQL store used by the hosted
// persistence service. The adapter package adds an HTTP client
// implementation against that service.
type VaultStore interface {
	// GetSalt returns the salt record for userID.
	// Returns ErrSaltNotFound if the user has no vault.
	GetSalt(ctx context.Context, userID int64) (models.VaultSalt, error)

	// CreateSalt persists a new salt record. The record is immutable once
	// written. Returns ErrSaltAlreadyExists if one exists for the user.
	CreateSalt(ctx context.Context, salt models.VaultSalt) error

	// DeleteSalt removes the salt record as part of a full vault reset,
	// which invalidates every existing envelope.
	// Returns ErrSaltNotFound if the user has no vault.
	DeleteSalt(ctx context.Context, userID int64) error

	// ListEnvelopes returns every encrypted item envelope owned by userID.
	ListEnvelopes(ctx context.Context, userID int64) ([]models.EncryptedVaultItem, error)

	// GetEnvelope returns the envelope identified by id for userID.
	// Returns ErrItemNotFound if it does not exist.
	GetEnvelope(ctx context.Context, userID int64, id string) (models.EncryptedVaultItem, error)

	// PutEnvelope creates or replaces the envelope keyed by its ID.
	PutEnvelope(ctx context.Context, item models.EncryptedVaultItem) error

	// DeleteEnvelope removes the envelope identified by id for userID.
	// Returns ErrItemNotFound if it does not exist.
	DeleteEnvelope(ctx context.Context, userID int64, id string) error

	// DeleteAllEnvelopes removes every envelope owned by userID. Used by
	// the full vault reset.
	DeleteAllEnvelopes(ctx context.Context, userID int64) error

	// GetSession returns the session escrow record for userID.
	// Returns ErrSessionNotFound if none exists. Expiry is the caller's
	// concern: the store returns expired records as stored.
	GetSession(ctx context.Context, userID int64) (models.VaultSession, error)

	// PutSession creates or replaces the session escrow record for the
	// session's user. At most one session per user is kept.
	PutSession(ctx context.Context, session models.VaultSession) error

	// DeleteSession removes the session escrow record for userID.
	// Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, userID int64) error
}
