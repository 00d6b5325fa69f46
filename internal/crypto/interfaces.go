package crypto

import "github.com/lifeos/vault/models"

// VaultCrypto owns all key material transforms for the zero-knowledge vault.
// It knows nothing about storage, sessions, or users — its only job is to
// derive, wrap, and apply keys.
//
// Key schema:
//
//	salt      = GenerateSalt()                      (enrollment)
//	masterKey = DeriveKey(password, salt)           (unlock)
//	itemKey   = GenerateItemKey()                   (enrollment)
//	wrapped   = WrapKey(itemKey, masterKey)         (stored in the salt record)
//	envelope  = EncryptItem(payload, itemKey)       (every write)
type VaultCrypto interface {
	// GenerateSalt returns a random 16-byte KDF salt. The salt is not a
	// secret; it only ensures identical passwords derive distinct keys.
	GenerateSalt() ([]byte, error)

	// DeriveKey derives the 256-bit master key from the password and salt.
	// Deterministic: identical inputs always yield an identical key. The
	// result exists only in process memory.
	DeriveKey(masterPassword string, salt []byte) []byte

	// GenerateItemKey returns a random 256-bit item-encryption key.
	GenerateItemKey() ([]byte, error)

	// WrapKey encrypts key with wrappingKey using AES-256-GCM and returns
	// the blob nonce ‖ ciphertext ‖ tag, safe to persist.
	WrapKey(key, wrappingKey []byte) ([]byte, error)

	// UnwrapKey reverses WrapKey. Returns ErrIntegrity if the tag does
	// not verify — the mechanism by which a wrong master password is
	// detected.
	UnwrapKey(blob, wrappingKey []byte) ([]byte, error)

	// EncryptItem serializes payload to JSON and encrypts it with key,
	// producing an envelope with a fresh random IV on every call.
	EncryptItem(payload any, key []byte) (models.Envelope, error)

	// DecryptItem verifies and decrypts an envelope with key and
	// unmarshals the plaintext JSON into target (a non-nil pointer).
	// Returns ErrIntegrity if the envelope fails authentication.
	DecryptItem(env models.Envelope, key []byte, target any) error
}
