package store

import "errors"

// Sentinel errors returned by store implementations to signal well-known
// failure conditions. Callers should use [errors.Is] to match against these
// values.
var (
	// ErrSaltNotFound is returned when the user has no vault salt record,
	// i.e. the vault was never initialized or has been reset.
	ErrSaltNotFound = errors.New("vault salt not found")

	// ErrSaltAlreadyExists is returned when CreateSalt is attempted for a
	// user that already has a salt record. Salt records are write-once.
	ErrSaltAlreadyExists = errors.New("vault salt already exists")

	// ErrItemNotFound is returned when a query targets an envelope
	// (identified by item id and user id) that does not exist.
	ErrItemNotFound = errors.New("vault item not found")

	// ErrSessionNotFound is returned when the user has no session escrow
	// record.
	ErrSessionNotFound = errors.New("vault session not found")
)
