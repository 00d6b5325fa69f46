package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// VaultSession is the durable escrow record created on unlock. It lets a
// reloaded client reconstruct the item key without re-prompting for the
// master password. The wrapping secret is held only by the client, so the
// escrow record alone cannot reconstruct the key.
type VaultSession struct {
	// SessionID is a random, unguessable session identifier.
	SessionID string `json:"session_id"`

	// UserID is the owner of the session.
	UserID int64 `json:"user_id"`

	// EscrowedKey is the vault item key wrapped with the client-held
	// session secret using AES-256-GCM (nonce ‖ ciphertext ‖ tag).
	EscrowedKey []byte `json:"escrowed_key"`

	// CreatedAt is when the session was created or last renewed.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the absolute expiry of the escrow. Expired sessions
	// are inert and treated as absent.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its absolute expiry at now.
func (s VaultSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ErrMalformedClientToken is returned by ParseClientToken when the token
// string does not decode to a session reference.
var ErrMalformedClientToken = errors.New("malformed client token")

// ClientToken is the short-lived local reference the client holds while a
// session escrow exists: the session identifier plus the wrapping secret.
// The secret never reaches the persistence backend.
type ClientToken struct {
	// SessionID identifies the escrow record.
	SessionID string

	// Secret is the 32-byte key that unwraps VaultSession.EscrowedKey.
	Secret []byte
}

// Encode serializes the token as
// base64url(sessionID) "." base64url(secret), safe to keep in a browser
// session store or process environment.
func (t ClientToken) Encode() string {
	return base64.RawURLEncoding.EncodeToString([]byte(t.SessionID)) +
		"." +
		base64.RawURLEncoding.EncodeToString(t.Secret)
}

// ParseClientToken decodes a token produced by [ClientToken.Encode].
// Returns ErrMalformedClientToken if the string is not two base64url parts
// or either part fails to decode.
func ParseClientToken(raw string) (ClientToken, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 {
		return ClientToken{}, ErrMalformedClientToken
	}

	sessionID, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ClientToken{}, fmt.Errorf("%w: %w", ErrMalformedClientToken, err)
	}
	secret, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ClientToken{}, fmt.Errorf("%w: %w", ErrMalformedClientToken, err)
	}
	if len(sessionID) == 0 || len(secret) == 0 {
		return ClientToken{}, ErrMalformedClientToken
	}

	return ClientToken{SessionID: string(sessionID), Secret: secret}, nil
}
