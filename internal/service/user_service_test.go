package service

import (
	"context"
	"testing"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/apperr"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectoryFixture() UserService {
	return NewUserService(newMemUserRepo(
		&model.User{ID: "alice", Name: "Alice", Email: "alice@example.com"},
		&model.User{ID: "bob", Name: "Bob", Email: "bob@example.com"},
		&model.User{ID: "carol", Name: "Carol", Email: "carol@chat.io"},
	))
}

func TestDirectory_ExcludesCaller(t *testing.T) {
	svc := newDirectoryFixture()

	profiles, err := svc.Directory(context.Background(), "alice", "")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	for _, p := range profiles {
		assert.NotEqual(t, "alice", p.ID)
	}
}

func TestDirectory_SearchMatchesNameAndEmail(t *testing.T) {
	svc := newDirectoryFixture()
	ctx := context.Background()

	profiles, err := svc.Directory(ctx, "alice", "BOB")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "bob", profiles[0].ID)

	profiles, err = svc.Directory(ctx, "alice", "chat.io")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "carol", profiles[0].ID)

	profiles, err = svc.Directory(ctx, "alice", "no-match")
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestProfile(t *testing.T) {
	svc := newDirectoryFixture()
	ctx := context.Background()

	profile, err := svc.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", profile.Name)

	_, err = svc.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
