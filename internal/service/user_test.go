package service

import (
	"context"
	"testing"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfileWritesOnlySuppliedFields(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	u := f.user(t, "dev@example.com")

	updated, err := f.profiles.UpdateProfile(ctx, u.ID, ProfilePatch{
		Name:    strPtr("  Dana  "),
		Contact: strPtr("+62 812 0000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana", updated.Name)
	assert.Equal(t, "+62 812 0000", updated.Contact)

	stored, err := f.profiles.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", stored.Name)
	assert.Equal(t, "+62 812 0000", stored.Contact)
	assert.Equal(t, "dev@example.com", stored.Email)

	// blank name is ignored, blank contact clears
	updated, err = f.profiles.UpdateProfile(ctx, u.ID, ProfilePatch{
		Name:      strPtr("   "),
		Contact:   strPtr(""),
		AvatarURL: strPtr("https://cdn.example.com/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana", updated.Name)
	assert.Empty(t, updated.Contact)
	assert.Equal(t, "https://cdn.example.com/a.png", updated.AvatarURL)

	stored, err = f.profiles.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Contact)
	assert.Equal(t, "https://cdn.example.com/a.png", stored.AvatarURL)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	f := newWorkspaceFixture(t)

	_, err := f.profiles.UpdateProfile(context.Background(), 4242, ProfilePatch{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
