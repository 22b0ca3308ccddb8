package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/clonebrain/clonebrain/internal/chat"
)

// maxVoiceBody caps uploaded audio size.
const maxVoiceBody = 16 << 20 // 16MB

// voiceHandler serves the spoken round-trip endpoint: audio in, audio out.
type voiceHandler struct {
	speech speechClient
	engine queryEngine
	auth   *authenticator
	logger *slog.Logger
}

// voice transcribes the uploaded audio, answers it through the pipeline with
// the spoken-answer prompt, and returns synthesized speech. The intermediate
// texts travel in response headers so the dashboard can display them.
func (h *voiceHandler) voice(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.auth.owner(r)
	if err != nil {
		pipelineAuthError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxVoiceBody)
	file, header, err := r.FormFile("audio")
	if err != nil {
		pipelineError(w, "Audio file is required")
		return
	}
	defer func() { _ = file.Close() }()

	transcript, err := h.speech.Transcribe(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("transcription failed", "owner_id", ownerID, "error", err)
		pipelineError(w, "Failed to transcribe audio")
		return
	}
	if transcript == "" {
		pipelineError(w, "Could not transcribe audio")
		return
	}

	answer, err := h.engine.RespondVoice(r.Context(), ownerID, transcript)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidInput) {
			pipelineError(w, "Could not transcribe audio")
			return
		}
		h.logger.Error("voice query failed", "owner_id", ownerID, "error", err)
		pipelineError(w, "Failed to generate response")
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), answer)
	if err != nil {
		h.logger.Error("speech synthesis failed", "owner_id", ownerID, "error", err)
		pipelineError(w, "Failed to synthesize speech")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.Header().Set("X-Transcribed-Text", sanitizeHeader(transcript))
	w.Header().Set("X-Response-Text", sanitizeHeader(answer))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.Debug("failed to write audio response", "error", err)
	}
}

// sanitizeHeader strips characters that are invalid in header values.
func sanitizeHeader(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}
