// Package chat implements the query pipeline: embed the query, retrieve the
// owner's most relevant knowledge, build the persona-conditioned prompt, and
// generate the answer.
//
// Every turn is stateless: exactly one system and one user message are sent,
// and nothing about the exchange is persisted.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/clonebrain/clonebrain/internal/knowledge"
	"github.com/clonebrain/clonebrain/internal/persona"
)

// Pipeline error taxonomy. The HTTP layer maps these onto the wire contract;
// callers check with errors.Is().
var (
	// ErrInvalidInput indicates the caller's request was malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates an AI provider call failed.
	ErrUpstream = errors.New("upstream provider failure")

	// ErrStorage indicates a database operation failed.
	ErrStorage = errors.New("storage failure")
)

// StreamCallback is called for each chunk of a streaming response.
// Returning an error aborts generation.
type StreamCallback = ai.ModelStreamCallback

// Retriever finds the owner's knowledge records most similar to a query.
// Implemented by *knowledge.Store.
type Retriever interface {
	Search(ctx context.Context, ownerID uuid.UUID, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// PersonaSource loads an owner's persona profile.
// Implemented by *persona.Store.
type PersonaSource interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*persona.Profile, error)
}

// Config holds the dependencies and tuning for an Engine.
type Config struct {
	Genkit    *genkit.Genkit
	Retriever Retriever
	Personas  PersonaSource
	ModelName string // provider-qualified, e.g. "openai/gpt-4o"

	ChatTopK  int     // retrieval depth for chat answers (default 5)
	VoiceTopK int     // retrieval depth for spoken answers (default 3)
	Threshold float64 // minimum similarity for retrieved chunks (default 0.5)

	Logger *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("chat: Genkit instance is required")
	}
	if cfg.Retriever == nil {
		return errors.New("chat: Retriever is required")
	}
	if cfg.Personas == nil {
		return errors.New("chat: PersonaSource is required")
	}
	if cfg.ModelName == "" {
		return errors.New("chat: ModelName is required")
	}
	return nil
}

// Engine runs the retrieval-augmented query pipeline.
//
// Engine is stateless and safe for concurrent use.
type Engine struct {
	g         *genkit.Genkit
	retriever Retriever
	personas  PersonaSource
	modelName string
	chatTopK  int
	voiceTopK int
	threshold float64
	logger    *slog.Logger
}

// New creates an Engine from the given configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.ChatTopK <= 0 {
		cfg.ChatTopK = 5
	}
	if cfg.VoiceTopK <= 0 {
		cfg.VoiceTopK = 3
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		g:         cfg.Genkit,
		retriever: cfg.Retriever,
		personas:  cfg.Personas,
		modelName: cfg.ModelName,
		chatTopK:  cfg.ChatTopK,
		voiceTopK: cfg.VoiceTopK,
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
	}, nil
}

// RespondStream answers a query with the chat prompt, streaming chunks to
// callback as the model produces them. It returns the complete answer text.
//
// Generation runs under ctx, so cancelling it (e.g. on client disconnect)
// aborts the upstream stream.
func (e *Engine) RespondStream(ctx context.Context, ownerID uuid.UUID, query string, callback StreamCallback) (string, error) {
	return e.respond(ctx, ownerID, query, e.chatTopK, persona.SystemPrompt, callback)
}

// RespondVoice answers a query with the shorter spoken-answer prompt,
// without streaming. An empty generation falls back to a spoken apology so
// the voice pipeline always has something to synthesize.
func (e *Engine) RespondVoice(ctx context.Context, ownerID uuid.UUID, query string) (string, error) {
	text, err := e.respond(ctx, ownerID, query, e.voiceTopK, persona.VoicePrompt, nil)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "I'm sorry, I couldn't generate a response.", nil
	}
	return text, nil
}

// promptFunc renders a system prompt from a profile and knowledge chunks.
type promptFunc func(*persona.Profile, []string) string

func (e *Engine) respond(ctx context.Context, ownerID uuid.UUID, query string, topK int, buildPrompt promptFunc, callback StreamCallback) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	// An absent profile is not an error; the prompt builder falls back to
	// neutral defaults.
	profile, err := e.personas.Get(ctx, ownerID)
	if err != nil && !errors.Is(err, persona.ErrNotFound) {
		return "", fmt.Errorf("%w: loading persona: %w", ErrStorage, err)
	}

	results, err := e.retriever.Search(ctx, ownerID, query,
		knowledge.WithTopK(topK), knowledge.WithThreshold(e.threshold))
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyQuery) {
			return "", fmt.Errorf("%w: query is required", ErrInvalidInput)
		}
		return "", fmt.Errorf("%w: retrieving knowledge: %w", ErrUpstream, err)
	}

	chunks := make([]string, len(results))
	for i, r := range results {
		chunks[i] = r.Record.Content
	}

	systemPrompt := buildPrompt(profile, chunks)

	e.logger.Debug("generating response",
		"owner_id", ownerID,
		"chunks", len(chunks),
		"query_length", len(query),
		"streaming", callback != nil,
	)

	// Exactly [system, user]; no history is carried between turns
	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(query))),
		ai.WithModelName(e.modelName),
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(callback))
	}

	resp, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: generating response: %w", ErrUpstream, err)
	}

	return resp.Text(), nil
}
