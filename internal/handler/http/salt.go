package http

import (
	"encoding/json"
	"net/http"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/models"
)

func (h *Handler) getSalt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	salt, err := h.store.GetSalt(r.Context(), userID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getSalt").Msg("error loading salt record")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	writeJSON(w, r, http.StatusOK, salt)
}

func (h *Handler) createSalt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var salt models.VaultSalt
	if err := json.NewDecoder(r.Body).Decode(&salt); err != nil {
		log.Err(err).Str("func", "*Handler.createSalt").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}
	// The record is always owned by the authenticated user, whatever the
	// body claims.
	salt.UserID = userID

	if err := h.store.CreateSalt(r.Context(), salt); err != nil {
		log.Err(err).Str("func", "*Handler.createSalt").Msg("error creating salt record")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) deleteSalt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSalt(r.Context(), userID); err != nil {
		log.Err(err).Str("func", "*Handler.deleteSalt").Msg("error deleting salt record")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
