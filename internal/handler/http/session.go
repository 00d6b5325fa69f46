package http

import (
	"encoding/json"
	"net/http"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/models"
)

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	session, err := h.store.GetSession(r.Context(), userID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getSession").Msg("error loading session escrow")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	writeJSON(w, r, http.StatusOK, session)
}

func (h *Handler) putSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var session models.VaultSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		log.Err(err).Str("func", "*Handler.putSession").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}
	session.UserID = userID

	if err := h.store.PutSession(r.Context(), session); err != nil {
		log.Err(err).Str("func", "*Handler.putSession").Msg("error storing session escrow")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSession(r.Context(), userID); err != nil {
		log.Err(err).Str("func", "*Handler.deleteSession").Msg("error deleting session escrow")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
