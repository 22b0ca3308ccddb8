package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clonebrain/clonebrain/internal/persona"
)

// personaHandler serves the profile management endpoints.
// These are dashboard surface, not pipeline surface, so they use
// conventional status codes.
type personaHandler struct {
	store  personaStore
	auth   *authenticator
	logger *slog.Logger
}

type personaPayload struct {
	Headline      string   `json:"headline"`
	Description   string   `json:"description"`
	Purpose       string   `json:"purpose"`
	SpeakingStyle string   `json:"speaking_style"`
	Instructions  []string `json:"instructions"`
}

type personaResponse struct {
	personaPayload
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPersonaResponse(p *persona.Profile) personaResponse {
	instructions := p.Instructions
	if instructions == nil {
		instructions = []string{}
	}
	return personaResponse{
		personaPayload: personaPayload{
			Headline:      p.Headline,
			Description:   p.Description,
			Purpose:       p.Purpose,
			SpeakingStyle: p.SpeakingStyle,
			Instructions:  instructions,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// get returns the authenticated owner's profile.
func (h *personaHandler) get(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := h.store.Get(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Persona not found")
			return
		}
		h.logger.Error("loading persona failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load persona")
		return
	}

	writeJSON(w, http.StatusOK, toPersonaResponse(profile))
}

// put creates or replaces the owner's profile.
func (h *personaHandler) put(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req personaPayload
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := h.store.Upsert(r.Context(), persona.Profile{
		OwnerID:       ownerID,
		Headline:      req.Headline,
		Description:   req.Description,
		Purpose:       req.Purpose,
		SpeakingStyle: req.SpeakingStyle,
		Instructions:  req.Instructions,
	})
	if err != nil {
		h.logger.Error("saving persona failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save persona")
		return
	}

	h.logger.Info("persona saved", "owner_id", ownerID)
	writeJSON(w, http.StatusOK, toPersonaResponse(saved))
}
