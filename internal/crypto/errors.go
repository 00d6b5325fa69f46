package crypto

import "errors"

// ErrIntegrity is returned when an authenticated decryption fails: the key
// is wrong, the ciphertext was corrupted, or the data was tampered with.
// Callers match it with [errors.Is]; the session layer escalates it to a
// wrong-password error when it occurs on the unlock probe.
var ErrIntegrity = errors.New("integrity check failed")
