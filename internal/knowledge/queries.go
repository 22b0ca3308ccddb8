package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgxpool.Pool the queries need.
// Satisfied by *pgxpool.Pool and pgx.Tx alike.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InsertRecordParams holds the parameters for InsertRecord.
type InsertRecordParams struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Content        string
	Metadata       []byte // JSON object
	Embedding      *pgvector.Vector
	EmbeddingModel string
}

// SearchRecordsParams holds the parameters for SearchRecords.
type SearchRecordsParams struct {
	OwnerID        uuid.UUID
	QueryEmbedding *pgvector.Vector
	EmbeddingModel string
	Threshold      float64
	ResultLimit    int
}

// SearchRecordsRow is a single vector search hit.
type SearchRecordsRow struct {
	ID         uuid.UUID
	Content    string
	Metadata   []byte
	CreatedAt  time.Time
	Similarity float64
}

// ListRecordsRow is a single listing row (no similarity computed).
type ListRecordsRow struct {
	ID        uuid.UUID
	Content   string
	Metadata  []byte
	CreatedAt time.Time
}

// Querier defines the database operations the Store depends on.
// The interface lives with its consumer so tests can substitute a mock.
type Querier interface {
	InsertRecord(ctx context.Context, arg InsertRecordParams) error
	SearchRecords(ctx context.Context, arg SearchRecordsParams) ([]SearchRecordsRow, error)
	ListRecords(ctx context.Context, ownerID uuid.UUID, limit int32) ([]ListRecordsRow, error)
	DeleteRecord(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
	CountRecords(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// Queries implements Querier over a pgx connection pool.
// All statements are parameterized; no user input reaches SQL text.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries instance over the given connection.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const insertRecordSQL = `
INSERT INTO knowledge_base (id, owner_id, content, metadata, embedding, embedding_model)
VALUES ($1, $2, $3, $4, $5, $6)`

// InsertRecord inserts a single knowledge row.
func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) error {
	_, err := q.db.Exec(ctx, insertRecordSQL,
		arg.ID, arg.OwnerID, arg.Content, arg.Metadata, arg.Embedding, arg.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("insert knowledge record: %w", err)
	}
	return nil
}

// searchRecordsSQL orders by cosine distance so the HNSW index is used; the
// similarity expression mirrors 1 - distance.
const searchRecordsSQL = `
SELECT id, content, metadata, created_at, 1 - (embedding <=> $1) AS similarity
FROM knowledge_base
WHERE owner_id = $2
  AND embedding_model = $3
  AND 1 - (embedding <=> $1) > $4
ORDER BY embedding <=> $1
LIMIT $5`

// SearchRecords performs an owner-scoped vector similarity search.
func (q *Queries) SearchRecords(ctx context.Context, arg SearchRecordsParams) ([]SearchRecordsRow, error) {
	rows, err := q.db.Query(ctx, searchRecordsSQL,
		arg.QueryEmbedding, arg.OwnerID, arg.EmbeddingModel, arg.Threshold, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge records: %w", err)
	}
	defer rows.Close()

	var results []SearchRecordsRow
	for rows.Next() {
		var r SearchRecordsRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

const listRecordsSQL = `
SELECT id, content, metadata, created_at
FROM knowledge_base
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2`

// ListRecords lists an owner's records, newest first.
func (q *Queries) ListRecords(ctx context.Context, ownerID uuid.UUID, limit int32) ([]ListRecordsRow, error) {
	rows, err := q.db.Query(ctx, listRecordsSQL, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list knowledge records: %w", err)
	}
	defer rows.Close()

	var results []ListRecordsRow
	for rows.Next() {
		var r ListRecordsRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate list rows: %w", err)
	}
	return results, nil
}

const deleteRecordSQL = `
DELETE FROM knowledge_base
WHERE owner_id = $1 AND id = $2`

// DeleteRecord deletes an owner's record and reports how many rows matched.
func (q *Queries) DeleteRecord(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteRecordSQL, ownerID, id)
	if err != nil {
		return 0, fmt.Errorf("delete knowledge record: %w", err)
	}
	return tag.RowsAffected(), nil
}

const countRecordsSQL = `
SELECT COUNT(*) FROM knowledge_base WHERE owner_id = $1`

// CountRecords counts an owner's records.
func (q *Queries) CountRecords(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	if err := q.db.QueryRow(ctx, countRecordsSQL, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count knowledge records: %w", err)
	}
	return count, nil
}
