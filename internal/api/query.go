package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/ai"

	"github.com/clonebrain/clonebrain/internal/chat"
)

// queryHandler serves the streaming chat endpoint.
type queryHandler struct {
	engine queryEngine
	auth   *authenticator
	logger *slog.Logger
}

type queryRequest struct {
	Query string `json:"query"`
}

// query answers a question with the owner's clone, streaming the raw answer
// text as the model produces it.
//
// Failure handling is two-phase: before the first chunk is written the
// response can still be a 400 JSON error, afterwards the stream simply
// terminates early.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		pipelineAuthError(w, err)
		return
	}

	var req queryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pipelineError(w, "Invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Headers are written lazily on the first chunk so pre-stream failures
	// still get a JSON error response.
	started := false
	callback := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		text := chunk.Text()
		if text == "" {
			return nil
		}
		if !started {
			startStream(w)
			started = true
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	// Generation runs under the request context; client disconnect cancels
	// the upstream stream.
	full, err := h.engine.RespondStream(r.Context(), ownerID, req.Query, callback)
	if err != nil {
		if started {
			h.logger.Warn("stream terminated mid-flight", "owner_id", ownerID, "error", err)
			return
		}
		switch {
		case errors.Is(err, chat.ErrInvalidInput):
			pipelineError(w, "Query is required")
		default:
			h.logger.Error("query failed", "owner_id", ownerID, "error", err)
			pipelineError(w, "Failed to generate response")
		}
		return
	}

	// Some models return the whole answer without emitting chunks
	if !started {
		startStream(w)
		_, _ = io.WriteString(w, full)
		flusher.Flush()
	}
}

// startStream writes the streaming response headers.
func startStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}
