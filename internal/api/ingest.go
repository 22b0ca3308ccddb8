package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clonebrain/clonebrain/internal/extract"
	"github.com/clonebrain/clonebrain/internal/knowledge"
)

// maxIngestBody caps ingest request bodies.
const maxIngestBody = 1 << 20 // 1MB

// ingestHandler serves the knowledge ingestion endpoints.
type ingestHandler struct {
	store     knowledgeStore
	extractor pageExtractor
	auth      *authenticator
	logger    *slog.Logger
}

type ingestRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ingestURLRequest struct {
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ingest embeds and stores a piece of text for the authenticated owner.
func (h *ingestHandler) ingest(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		pipelineAuthError(w, err)
		return
	}

	var req ingestRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pipelineError(w, "Invalid request body")
		return
	}

	id, err := h.store.Ingest(r.Context(), ownerID, req.Content, req.Metadata)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyContent) {
			pipelineError(w, "Content is required")
			return
		}
		h.logger.Error("ingest failed", "owner_id", ownerID, "error", err)
		pipelineError(w, "Failed to ingest content")
		return
	}

	h.logger.Info("ingested content", "owner_id", ownerID, "record_id", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ingestURL fetches a web page, extracts its readable text, and runs the
// same ingestion path with source metadata filled in.
func (h *ingestHandler) ingestURL(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		pipelineAuthError(w, err)
		return
	}

	var req ingestURLRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pipelineError(w, "Invalid request body")
		return
	}
	if req.URL == "" {
		pipelineError(w, "URL is required")
		return
	}

	page, err := h.extractor.Extract(r.Context(), req.URL)
	if err != nil {
		h.logger.Warn("url extraction failed", "owner_id", ownerID, "url", req.URL, "error", err)
		switch {
		case errors.Is(err, extract.ErrTooLarge):
			pipelineError(w, "Page is too large")
		case errors.Is(err, extract.ErrUnreadable):
			pipelineError(w, "Page has no readable content")
		default:
			pipelineError(w, "Failed to fetch URL")
		}
		return
	}

	metadata := map[string]string{"source": req.URL}
	if page.Title != "" {
		metadata["title"] = page.Title
	}
	// Caller metadata wins over extracted defaults
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	id, err := h.store.Ingest(r.Context(), ownerID, page.Text, metadata)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyContent) {
			pipelineError(w, "Page has no readable content")
			return
		}
		h.logger.Error("url ingest failed", "owner_id", ownerID, "url", req.URL, "error", err)
		pipelineError(w, "Failed to ingest content")
		return
	}

	h.logger.Info("ingested url", "owner_id", ownerID, "record_id", id, "url", req.URL)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
