package session

import "errors"

// Sentinel errors returned by the session manager. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrInvalidPassword is returned when an unlock is attempted with the
	// wrong master password. Detected via authentication-tag failure while
	// unwrapping the vault item key. Recoverable: the user retries.
	ErrInvalidPassword = errors.New("invalid master password")

	// ErrAlreadyInitialized is returned when InitializeVault is called for
	// a user that already has a vault. The user should unlock instead.
	ErrAlreadyInitialized = errors.New("vault already initialized")

	// ErrNoVault is returned when an operation requires an enrolled vault
	// but no salt record exists for the user.
	ErrNoVault = errors.New("vault is not initialized")

	// ErrVaultLocked is returned when key material is requested while the
	// vault is not unlocked. The caller must unlock or resume first.
	ErrVaultLocked = errors.New("vault is locked")
)
