package models

import "time"

// VaultSalt is the per-user key-derivation record, written exactly once at
// vault enrollment and immutable afterwards. The salt is not a secret; the
// wrapped item key is safe to store because without the password-derived
// key it is indistinguishable from random noise.
type VaultSalt struct {
	// UserID is the owner of the vault.
	UserID int64 `json:"user_id"`

	// Salt is the random 16-byte KDF salt. Encoded as standard base64 in
	// JSON transport.
	Salt []byte `json:"salt"`

	// WrappedItemKey is the vault's item-encryption key wrapped with the
	// password-derived key using AES-256-GCM (nonce ‖ ciphertext ‖ tag).
	// Unwrapping it doubles as the wrong-password probe: a key derived
	// from the wrong password fails tag verification here.
	WrappedItemKey []byte `json:"wrapped_item_key"`

	// CreatedAt is when the vault was enrolled.
	CreatedAt time.Time `json:"created_at"`
}
