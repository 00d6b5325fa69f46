package http

import (
	"encoding/json"
	"net/http"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/internal/utils"
)

// requestUserID returns the authenticated user ID stored by the auth
// middleware. A missing ID means the route was wired without withAuth; the
// request is rejected rather than served unscoped.
func requestUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		logger.FromRequest(r).Error().Msg("no user ID in request context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromRequest(r).Err(err).Msg("error encoding response body")
	}
}
