package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionRepo_FollowAndFollowers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInteractionRepository(db)
	scopeRepo := NewScopeRepository(db)
	ctx := context.Background()

	a := testUser(t, db, "alice")
	b := testUser(t, db, "bob")
	c := testUser(t, db, "carol")

	changed, err := repo.SetFollow(ctx, b, a, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SetFollow(ctx, b, a, true)
	require.NoError(t, err)
	assert.False(t, changed, "replayed follow is a no-op")

	_, err = repo.SetFollow(ctx, c, a, true)
	require.NoError(t, err)

	changed, err = repo.SetFollow(ctx, a, uuid.NewString(), true)
	require.NoError(t, err)
	assert.False(t, changed, "unknown followee is ignored")

	followers, err := repo.GetFollowers(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b, c}, followers)

	following, err := scopeRepo.GetFollowing(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, following)

	changed, err = repo.SetFollow(ctx, b, a, false)
	require.NoError(t, err)
	assert.True(t, changed)

	following, err = scopeRepo.GetFollowing(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestInteractionRepo_RepostCounter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInteractionRepository(db)
	scopeRepo := NewScopeRepository(db)
	ctx := context.Background()

	a := testUser(t, db, "alice")
	b := testUser(t, db, "bob")
	c := testUser(t, db, "carol")
	collage := testCollage(t, db, a, time.Now(), false)

	for _, user := range []string{b, c, b} {
		_, err := repo.SetRepost(ctx, user, collage, true)
		require.NoError(t, err)
	}

	count := func() int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT repost_count FROM collages WHERE id = $1`, collage).Scan(&n))
		return n
	}
	assert.Equal(t, 2, count())

	reposted, err := scopeRepo.GetRepostedBy(ctx, []string{b, c})
	require.NoError(t, err)
	assert.Equal(t, []string{collage}, reposted, "reposts by several users are collapsed")

	changed, err := repo.SetRepost(ctx, b, collage, false)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.SetRepost(ctx, b, collage, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, count())

	reposted, err = scopeRepo.GetRepostedBy(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, reposted)
}

func TestInteractionRepo_SaveOnMissingCollage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInteractionRepository(db)

	a := testUser(t, db, "alice")
	changed, err := repo.SetSave(context.Background(), a, uuid.NewString(), true)
	require.NoError(t, err)
	assert.False(t, changed)
}
