package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clonebrain/clonebrain/internal/knowledge"
)

// defaultListLimit is the page size when the limit query param is absent.
const defaultListLimit = 50

// knowledgeHandler serves the knowledge management endpoints.
// Dashboard surface; conventional status codes.
type knowledgeHandler struct {
	store  knowledgeStore
	auth   *authenticator
	logger *slog.Logger
}

type knowledgeItem struct {
	ID        uuid.UUID         `json:"id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

type knowledgeListResponse struct {
	Items []knowledgeItem `json:"items"`
	Count int             `json:"count"`
}

// list returns the owner's records, newest first.
func (h *knowledgeHandler) list(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := int32(defaultListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 || parsed > knowledge.MaxListLimit {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = int32(parsed)
	}

	records, err := h.store.List(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("listing knowledge failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list knowledge")
		return
	}

	items := make([]knowledgeItem, 0, len(records))
	for _, rec := range records {
		items = append(items, knowledgeItem{
			ID:        rec.ID,
			Content:   rec.Content,
			Metadata:  rec.Metadata,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, knowledgeListResponse{Items: items, Count: len(items)})
}

// delete removes one of the owner's records.
func (h *knowledgeHandler) delete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid record ID")
		return
	}

	if err := h.store.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Record not found")
			return
		}
		h.logger.Error("deleting knowledge failed", "owner_id", ownerID, "record_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete record")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// stats returns the owner's record count.
func (h *knowledgeHandler) stats(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	count, err := h.store.Count(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("counting knowledge failed", "owner_id", ownerID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}
