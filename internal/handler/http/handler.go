package http

import (
	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/internal/store"
)

// AuthSettings carries the JWT verification parameters the auth middleware
// needs. Tokens are issued by the identity provider; vaultd only validates
// them.
type AuthSettings struct {
	TokenSignKey string
	TokenIssuer  string
}

type Handler struct {
	store store.VaultStore
	auth  AuthSettings

	version string

	logger *logger.Logger
}

func NewHandler(vaultStore store.VaultStore, auth AuthSettings, version string, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		store:   vaultStore,
		auth:    auth,
		version: version,
		logger:  logger,
	}
}
