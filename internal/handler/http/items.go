package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/models"
)

func (h *Handler) listEnvelopes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	envelopes, err := h.store.ListEnvelopes(r.Context(), userID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listEnvelopes").Msg("error listing envelopes")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}
	if envelopes == nil {
		envelopes = []models.EncryptedVaultItem{}
	}

	writeJSON(w, r, http.StatusOK, envelopes)
}

func (h *Handler) getEnvelope(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	envelope, err := h.store.GetEnvelope(r.Context(), userID, id)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getEnvelope").Str("item_id", id).
			Msg("error loading envelope")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	writeJSON(w, r, http.StatusOK, envelope)
}

func (h *Handler) putEnvelope(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	var envelope models.EncryptedVaultItem
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Err(err).Str("func", "*Handler.putEnvelope").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}
	if envelope.ID == "" {
		http.Error(w, "envelope id is required", http.StatusBadRequest)
		return
	}
	envelope.UserID = userID

	if err := h.store.PutEnvelope(r.Context(), envelope); err != nil {
		log.Err(err).Str("func", "*Handler.putEnvelope").Str("item_id", envelope.ID).
			Msg("error storing envelope")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteEnvelope(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.store.DeleteEnvelope(r.Context(), userID, id); err != nil {
		log.Err(err).Str("func", "*Handler.deleteEnvelope").Str("item_id", id).
			Msg("error deleting envelope")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAllEnvelopes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteAllEnvelopes(r.Context(), userID); err != nil {
		log.Err(err).Str("func", "*Handler.deleteAllEnvelopes").Msg("error deleting envelopes")
		http.Error(w, err.Error(), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
