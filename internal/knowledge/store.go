package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

var (
	// ErrEmptyContent indicates ingestion was attempted with blank content.
	ErrEmptyContent = errors.New("content is required")

	// ErrEmptyQuery indicates a search was attempted with a blank query.
	ErrEmptyQuery = errors.New("query is required")

	// ErrNotFound indicates the requested record does not exist for the owner.
	ErrNotFound = errors.New("knowledge record not found")
)

// MaxListLimit caps listing queries to prevent resource exhaustion.
const MaxListLimit = 1000

// Store manages knowledge records with vector search.
// It generates embeddings on ingestion and performs cosine similarity search
// via PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	model    string // embedding model name recorded on rows and filtered on search
	logger   *slog.Logger
}

// New creates a Store.
//
// model is the active embedding model name; rows are stamped with it on
// ingestion and retrieval only considers rows embedded by it.
func New(querier Querier, embedder ai.Embedder, model string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		queries:  querier,
		embedder: embedder,
		model:    model,
		logger:   logger,
	}
}

// Ingest embeds content and stores it as a new record for the owner.
// Blank content fails with ErrEmptyContent before any embedding or database
// call. Exactly one row is written on success, none on failure.
func (s *Store) Ingest(ctx context.Context, ownerID uuid.UUID, content string, metadata map[string]string) (uuid.UUID, error) {
	if strings.TrimSpace(content) == "" {
		return uuid.Nil, ErrEmptyContent
	}

	embedding, err := s.embedText(ctx, content)
	if err != nil {
		return uuid.Nil, err
	}

	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal metadata: %w", err)
	}

	id := uuid.New()
	err = s.queries.InsertRecord(ctx, InsertRecordParams{
		ID:             id,
		OwnerID:        ownerID,
		Content:        content,
		Metadata:       metadataJSON,
		Embedding:      embedding,
		EmbeddingModel: s.model,
	})
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Debug("ingested knowledge record",
		"id", id, "owner_id", ownerID, "content_length", len(content))
	return id, nil
}

// Search embeds the query and returns the owner's most similar records,
// ordered by descending similarity. Results at or below the similarity
// threshold are excluded. A 10-second timeout bounds the whole operation.
func (s *Store) Search(ctx context.Context, ownerID uuid.UUID, query string, opts ...SearchOption) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embedText(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, err
	}

	rows, err := s.queries.SearchRecords(queryCtx, SearchRecordsParams{
		OwnerID:        ownerID,
		QueryEmbedding: embedding,
		EmbeddingModel: s.model,
		Threshold:      cfg.threshold,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Record: Record{
				ID:             row.ID,
				OwnerID:        ownerID,
				Content:        row.Content,
				Metadata:       s.parseMetadata(row.ID, row.Metadata),
				EmbeddingModel: s.model,
				CreatedAt:      row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results, nil
}

// List returns the owner's records, newest first.
func (s *Store) List(ctx context.Context, ownerID uuid.UUID, limit int32) ([]Record, error) {
	if limit <= 0 || limit > MaxListLimit {
		return nil, fmt.Errorf("limit must be between 1 and %d, got %d", MaxListLimit, limit)
	}

	rows, err := s.queries.ListRecords(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			ID:        row.ID,
			OwnerID:   ownerID,
			Content:   row.Content,
			Metadata:  s.parseMetadata(row.ID, row.Metadata),
			CreatedAt: row.CreatedAt,
		})
	}
	return records, nil
}

// Delete removes one of the owner's records.
// Returns ErrNotFound when the record does not exist or belongs to another
// owner.
func (s *Store) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	affected, err := s.queries.DeleteRecord(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.logger.Debug("deleted knowledge record", "id", id, "owner_id", ownerID)
	return nil
}

// Count returns the owner's record count.
func (s *Store) Count(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return s.queries.CountRecords(ctx, ownerID)
}

// embedText generates the embedding vector for a single text.
func (s *Store) embedText(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{
				Content: []*ai.Part{ai.NewTextPart(text)},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	vec := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &vec, nil
}

// parseMetadata decodes a metadata JSON column, tolerating bad rows.
func (s *Store) parseMetadata(id uuid.UUID, raw []byte) map[string]string {
	if len(raw) == 0 {
		return map[string]string{}
	}
	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "record_id", id, "error", err)
		return map[string]string{}
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return metadata
}
