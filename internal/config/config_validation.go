// SPDX-License-Identifier: Apache-2.0

package config

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants every deployment shares, regardless of which binary consumes it.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.TokenDuration < 0 || cfg.App.KDFIterations < 0 {
		return ErrInvalidAppConfigs
	}

	if cfg.Server.RequestTimeout < 0 {
		return ErrInvalidServerConfigs
	}

	if cfg.Session.TTL < 0 || cfg.Session.IdleTimeout < 0 || cfg.Session.AutoLockPoll < 0 {
		return ErrInvalidSessionConfigs
	}

	return nil
}

// ValidateServer checks the additional invariants required to run vaultd:
// the service cannot start without a database and token verification keys.
func (cfg *StructuredConfig) ValidateServer() error {
	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.App.TokenSignKey == "" || cfg.App.TokenIssuer == "" {
		return ErrInvalidAppConfigs
	}

	return nil
}
