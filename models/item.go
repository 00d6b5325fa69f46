package models

import "time"

// VaultItem is the decrypted, in-memory representation of one vault entry.
// It exists only transiently between decryption and re-encryption and is
// never persisted in this form.
type VaultItem struct {
	// ID is the client-assigned unique identifier of the item.
	ID string `json:"id"`

	// UserID is the owner of the item.
	UserID int64 `json:"-"`

	// Type selects the shape of Data.
	Type ItemType `json:"type"`

	// Name is the user-visible label of the item.
	Name string `json:"name"`

	// Data is the decrypted payload. Its concrete type matches Type.
	Data ItemPayload `json:"data"`

	// CreatedAt is when the item was first added to the vault.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the item envelope was last replaced.
	UpdatedAt time.Time `json:"updated_at"`
}

// Envelope is the authenticated ciphertext produced by one encryption
// operation. All three fields are standard-base64 strings so the envelope
// round-trips exactly through JSON and SQL text columns.
type Envelope struct {
	// Ciphertext is the encrypted payload without the authentication tag.
	Ciphertext string `json:"ciphertext"`

	// IV is the 12-byte GCM nonce, unique per encryption operation.
	IV string `json:"iv"`

	// AuthTag is the 16-byte GCM authentication tag. It must verify
	// before the ciphertext is trusted.
	AuthTag string `json:"auth_tag"`
}

// EncryptedVaultItem is the at-rest form of one vault entry: the envelope
// plus plaintext metadata. Name is stored in the clear so listings can be
// rendered without bulk decryption; the confidential material lives in the
// encrypted payload.
type EncryptedVaultItem struct {
	// ID is the client-assigned unique identifier of the item.
	ID string `json:"id"`

	// UserID is the owner of the item.
	UserID int64 `json:"user_id"`

	// ItemType selects the payload shape after decryption.
	ItemType ItemType `json:"item_type"`

	// Name is the user-visible label of the item.
	Name string `json:"name"`

	// Envelope holds the ciphertext, IV, and authentication tag.
	Envelope Envelope `json:"envelope"`

	// CreatedAt is when the item was first added to the vault.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the envelope was last replaced. Every update
	// rewrites the envelope with a fresh IV.
	UpdatedAt time.Time `json:"updated_at"`
}
