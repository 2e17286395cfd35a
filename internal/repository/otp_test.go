package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOtpUpsertReplacesChallenge(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOtpRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &model.OtpChallenge{Email: "a@x.io", CodeHash: "one", ExpiresAt: now.Add(time.Minute), LastSentAt: now}
	require.NoError(t, repo.Upsert(ctx, first))

	stored, err := repo.GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		ok, err := repo.ReserveAttempt(ctx, stored.ID, "one", 5)
		require.NoError(t, err)
		require.True(t, ok)
	}

	second := &model.OtpChallenge{Email: "a@x.io", CodeHash: "two", ExpiresAt: now.Add(2 * time.Minute), LastSentAt: now}
	require.NoError(t, repo.Upsert(ctx, second))

	var count int64
	require.NoError(t, db.Model(&model.OtpChallenge{}).Where("email = ?", "a@x.io").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err = repo.GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "two", stored.CodeHash)
	assert.Equal(t, 0, stored.Attempts)
}

func TestOtpDeleteRequiresMatchingHash(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOtpRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, &model.OtpChallenge{Email: "b@x.io", CodeHash: "h", ExpiresAt: now.Add(time.Minute), LastSentAt: now}))
	stored, err := repo.GetByEmail(ctx, "b@x.io")
	require.NoError(t, err)

	assert.True(t, IsNotFound(repo.Delete(ctx, stored.ID, "other")))
	require.NoError(t, repo.Delete(ctx, stored.ID, "h"))
	assert.True(t, IsNotFound(repo.Delete(ctx, stored.ID, "h")))
}

func TestOtpReserveAttemptStopsAtCeiling(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOtpRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, &model.OtpChallenge{Email: "c@x.io", CodeHash: "h", ExpiresAt: now.Add(time.Minute), LastSentAt: now}))
	stored, err := repo.GetByEmail(ctx, "c@x.io")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := repo.ReserveAttempt(ctx, stored.ID, "h", 3)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, err := repo.ReserveAttempt(ctx, stored.ID, "h", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ReserveAttempt(ctx, stored.ID, "other", 3)
	require.NoError(t, err)
	assert.False(t, ok, "a replaced challenge is not touched")

	stored, err = repo.GetByEmail(ctx, "c@x.io")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Attempts)
}
