package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	tok := sampleToken("m1", time.Hour)

	require.NoError(t, repo.Create(ctx, tok))
	require.ErrorIs(t, repo.Create(ctx, tok), ErrDuplicateToken)

	got, err := repo.GetByHash(ctx, "m1")
	require.NoError(t, err)
	got.Revoked = true // callers get a copy

	again, err := repo.GetByHash(ctx, "m1")
	require.NoError(t, err)
	require.False(t, again.Revoked)

	ok, err := repo.RevokeIfActive(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.RevokeIfActive(ctx, "m1")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = repo.RevokeIfActive(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}
