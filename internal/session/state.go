package session

// State is the session manager's position in the vault lifecycle.
// Transitions: NoVault → Locked → Unlocked → Locked, plus Unlocked → Locked
// on idle expiry and any state → NoVault on full reset.
type State int

const (
	// stateUnknown is the pre-load zero value; the manager resolves it to
	// NoVault or Locked on first use by probing for the salt record.
	stateUnknown State = iota

	// StateNoVault means the user has never enrolled a vault.
	StateNoVault

	// StateLocked means a vault exists but no key material is in memory.
	StateLocked

	// StateUnlocked means the item key is held in memory and vault
	// operations may proceed.
	StateUnlocked
)

// String implements [fmt.Stringer] for log fields.
func (s State) String() string {
	switch s {
	case StateNoVault:
		return "no_vault"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}
