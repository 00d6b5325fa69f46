// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/lifeos/vault/models"
)

const (
	saltLen = 16
	keyLen  = 32 // 256 bits

	// DefaultKDFIterations is the PBKDF2-SHA256 cost factor used when no
	// override is configured. High enough that brute-forcing the master
	// password from a stolen salt+ciphertext is computationally expensive.
	DefaultKDFIterations = 100_000
)

// vaultCrypto is the private implementation of [VaultCrypto].
type vaultCrypto struct {
	// PBKDF2 iteration count. Stored in the struct so it can be lowered
	// for tests and tuned per deployment target.
	kdfIterations int
}

// NewVaultCrypto constructs a [VaultCrypto] using PBKDF2-SHA256 with
// iterations as the cost factor. Zero or negative falls back to
// [DefaultKDFIterations].
func NewVaultCrypto(iterations int) VaultCrypto {
	if iterations <= 0 {
		iterations = DefaultKDFIterations
	}
	return &vaultCrypto{kdfIterations: iterations}
}

// GenerateSalt implements [VaultCrypto]. It reads 16 random bytes from the
// OS CSPRNG. Returns an error if the random read fails.
func (c *vaultCrypto) GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey implements [VaultCrypto]. It derives a 256-bit key from
// masterPassword and salt via PBKDF2-SHA256 with the configured iteration
// count. Never logs or retains the password.
func (c *vaultCrypto) DeriveKey(masterPassword string, salt []byte) []byte {
	return pbkdf2.Key([]byte(masterPassword), salt, c.kdfIterations, keyLen, sha256.New)
}

// GenerateItemKey implements [VaultCrypto]. It reads 32 random bytes from
// the OS CSPRNG. Returns an error if the random read fails.
func (c *vaultCrypto) GenerateItemKey() ([]byte, error) {
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// WrapKey implements [VaultCrypto]. It encrypts key under wrappingKey with
// AES-256-GCM. A random 12-byte nonce is prepended to the sealed output so
// the unwrap side can locate it: blob = nonce ‖ ciphertext ‖ tag.
func (c *vaultCrypto) WrapKey(key, wrappingKey []byte) ([]byte, error) {
	gcm, err := newGCM(wrappingKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return append(nonce, gcm.Seal(nil, nonce, key, nil)...), nil
}

// UnwrapKey implements [VaultCrypto]. It reverses [vaultCrypto.WrapKey].
// The blob must be at least as long as the GCM nonce. Returns ErrIntegrity
// if the blob is malformed or the tag does not verify — which almost always
// means the wrapping key came from the wrong master password.
func (c *vaultCrypto) UnwrapKey(blob, wrappingKey []byte) ([]byte, error) {
	gcm, err := newGCM(wrappingKey)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("%w: wrapped key too short", ErrIntegrity)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	key, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	return key, nil
}

// EncryptItem implements [VaultCrypto]. It marshals payload to JSON and
// seals it with key using AES-256-GCM under a fresh random IV. The sealed
// output is split into ciphertext and authentication tag and each envelope
// field is standard-base64 encoded.
func (c *vaultCrypto) EncryptItem(payload any, key []byte) (models.Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return models.Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return models.Envelope{}, err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return models.Envelope{}, fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)

	// Seal appends the tag to the ciphertext; the envelope keeps them as
	// separate fields.
	tagAt := len(sealed) - gcm.Overhead()
	return models.Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:tagAt]),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[tagAt:]),
	}, nil
}

// DecryptItem implements [VaultCrypto]. It decodes the envelope fields,
// verifies the authentication tag, decrypts with key, and unmarshals the
// plaintext JSON into target. target must be a non-nil pointer, identical
// to the requirement of [encoding/json.Unmarshal]. Any decode or
// verification failure is reported as ErrIntegrity.
func (c *vaultCrypto) DecryptItem(env models.Envelope, key []byte, target any) error {
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return fmt.Errorf("%w: decode ciphertext: %w", ErrIntegrity, err)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return fmt.Errorf("%w: decode iv: %w", ErrIntegrity, err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
	if err != nil {
		return fmt.Errorf("%w: decode auth tag: %w", ErrIntegrity, err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	if len(iv) != gcm.NonceSize() {
		return fmt.Errorf("%w: iv length %d", ErrIntegrity, len(iv))
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	if err := json.Unmarshal(plaintext, target); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keyLen {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
