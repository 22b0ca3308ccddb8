package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clonebrain/clonebrain/internal/auth"
	"github.com/clonebrain/clonebrain/internal/chat"
	"github.com/clonebrain/clonebrain/internal/extract"
	"github.com/clonebrain/clonebrain/internal/knowledge"
	"github.com/clonebrain/clonebrain/internal/persona"
)

// queryEngine runs the retrieval-augmented pipeline.
// Implemented by *chat.Engine.
type queryEngine interface {
	RespondStream(ctx context.Context, ownerID uuid.UUID, query string, callback chat.StreamCallback) (string, error)
	RespondVoice(ctx context.Context, ownerID uuid.UUID, query string) (string, error)
}

// knowledgeStore manages the owner's knowledge records.
// Implemented by *knowledge.Store.
type knowledgeStore interface {
	Ingest(ctx context.Context, ownerID uuid.UUID, content string, metadata map[string]string) (uuid.UUID, error)
	List(ctx context.Context, ownerID uuid.UUID, limit int32) ([]knowledge.Record, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Count(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// personaStore manages the owner's persona profile.
// Implemented by *persona.Store.
type personaStore interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*persona.Profile, error)
	Upsert(ctx context.Context, p persona.Profile) (*persona.Profile, error)
}

// speechClient converts between audio and text.
// Implemented by *voice.Client.
type speechClient interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, contentType string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// pageExtractor fetches a URL and extracts its readable text.
// Implemented by *extract.Extractor.
type pageExtractor interface {
	Extract(ctx context.Context, rawURL string) (*extract.Page, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Resolver  auth.Resolver // Required
	Engine    queryEngine   // Required
	Knowledge knowledgeStore // Required
	Personas  personaStore  // Required
	Voice     speechClient  // Optional: nil disables /v1/voice
	Extractor pageExtractor // Optional: nil disables /v1/ingest/url
	Pool      *pgxpool.Pool // Optional: nil disables pool ping in /ready
	TrustProxy bool         // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst  int          // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("auth resolver is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("query engine is required")
	}
	if cfg.Knowledge == nil {
		return nil, errors.New("knowledge store is required")
	}
	if cfg.Personas == nil {
		return nil, errors.New("persona store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authn := &authenticator{resolver: cfg.Resolver}

	mux := http.NewServeMux()

	ih := &ingestHandler{store: cfg.Knowledge, extractor: cfg.Extractor, auth: authn, logger: logger}
	mux.HandleFunc("POST /v1/ingest", ih.ingest)
	if cfg.Extractor != nil {
		mux.HandleFunc("POST /v1/ingest/url", ih.ingestURL)
	}

	qh := &queryHandler{engine: cfg.Engine, auth: authn, logger: logger}
	mux.HandleFunc("POST /v1/query", qh.query)

	if cfg.Voice != nil {
		vh := &voiceHandler{speech: cfg.Voice, engine: cfg.Engine, auth: authn, logger: logger}
		mux.HandleFunc("POST /v1/voice", vh.voice)
	}

	ph := &personaHandler{store: cfg.Personas, auth: authn, logger: logger}
	mux.HandleFunc("GET /v1/persona", ph.get)
	mux.HandleFunc("PUT /v1/persona", ph.put)

	kh := &knowledgeHandler{store: cfg.Knowledge, auth: authn, logger: logger}
	mux.HandleFunc("GET /v1/knowledge", kh.list)
	mux.HandleFunc("GET /v1/knowledge/stats", kh.stats)
	mux.HandleFunc("DELETE /v1/knowledge/{id}", kh.delete)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS always
	// gets CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware()(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates health probes from the middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// authenticator resolves the request's bearer credential to an owner.
type authenticator struct {
	resolver auth.Resolver
}

// owner authenticates the request. Failures are auth.ErrMissingToken or
// auth.ErrUnauthorized; the caller maps them onto its endpoint's contract.
func (a *authenticator) owner(r *http.Request) (uuid.UUID, error) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return uuid.Nil, auth.ErrMissingToken
	}
	return a.resolver.Resolve(r.Context(), token)
}
