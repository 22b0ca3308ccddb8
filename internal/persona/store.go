package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates no profile exists for the owner.
var ErrNotFound = errors.New("persona profile not found")

// DBTX is the subset of pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists persona profiles, one row per owner.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     DBTX
	logger *slog.Logger
}

// NewStore creates a Store.
func NewStore(db DBTX, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

const getProfileSQL = `
SELECT headline, description, purpose, speaking_style, instructions, created_at, updated_at
FROM personas
WHERE owner_id = $1`

// Get returns the owner's profile, or ErrNotFound when none exists.
func (s *Store) Get(ctx context.Context, ownerID uuid.UUID) (*Profile, error) {
	p := Profile{OwnerID: ownerID}
	var instructionsJSON []byte

	err := s.db.QueryRow(ctx, getProfileSQL, ownerID).Scan(
		&p.Headline, &p.Description, &p.Purpose, &p.SpeakingStyle,
		&instructionsJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: owner %s", ErrNotFound, ownerID)
		}
		return nil, fmt.Errorf("get persona profile: %w", err)
	}

	if err := json.Unmarshal(instructionsJSON, &p.Instructions); err != nil {
		s.logger.Warn("failed to parse persona instructions", "owner_id", ownerID, "error", err)
		p.Instructions = nil
	}

	return &p, nil
}

const upsertProfileSQL = `
INSERT INTO personas (owner_id, headline, description, purpose, speaking_style, instructions)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (owner_id) DO UPDATE SET
    headline = EXCLUDED.headline,
    description = EXCLUDED.description,
    purpose = EXCLUDED.purpose,
    speaking_style = EXCLUDED.speaking_style,
    instructions = EXCLUDED.instructions,
    updated_at = now()
RETURNING created_at, updated_at`

// Upsert creates or replaces the owner's profile and returns the stored copy.
func (s *Store) Upsert(ctx context.Context, p Profile) (*Profile, error) {
	if p.Instructions == nil {
		p.Instructions = []string{}
	}
	instructionsJSON, err := json.Marshal(p.Instructions)
	if err != nil {
		return nil, fmt.Errorf("marshal instructions: %w", err)
	}

	err = s.db.QueryRow(ctx, upsertProfileSQL,
		p.OwnerID, p.Headline, p.Description, p.Purpose, p.SpeakingStyle, instructionsJSON).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert persona profile: %w", err)
	}

	s.logger.Debug("upserted persona profile", "owner_id", p.OwnerID)
	return &p, nil
}
