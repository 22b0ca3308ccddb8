package persona

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonebrain/clonebrain/internal/log"
	"github.com/clonebrain/clonebrain/internal/testutil"
)

func TestStore_GetUpsert_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(dbContainer.Pool, log.NewNop())
	owner := uuid.New()

	// Absent profile
	_, err := store.Get(ctx, owner)
	assert.ErrorIs(t, err, ErrNotFound)

	// Insert
	created, err := store.Upsert(ctx, Profile{
		OwnerID:       owner,
		Headline:      "a fintech founder",
		Description:   "Built two payment startups.",
		Purpose:       "Answer investor questions.",
		SpeakingStyle: "Direct.",
		Instructions:  []string{"Mention the roadmap."},
	})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "a fintech founder", got.Headline)
	assert.Equal(t, []string{"Mention the roadmap."}, got.Instructions)

	// Update in place (singleton per owner)
	updated, err := store.Upsert(ctx, Profile{
		OwnerID:      owner,
		Headline:     "a CEO",
		Instructions: nil, // stored as empty list
	})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, err = store.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "a CEO", got.Headline)
	assert.Empty(t, got.Instructions)
}
