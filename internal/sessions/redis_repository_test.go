package sessions

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/facturador/facturador/backend/go-services/internal/tokens"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, "test:refresh:"), m
}

func sampleToken(hash string, ttl time.Duration) *RefreshToken {
	now := time.Now().UTC()
	return &RefreshToken{
		ID:        "id-" + hash,
		TokenHash: hash,
		OwnerID:   "owner-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestRedisRepository_CreateGetRevoke(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()

	tok := sampleToken("h1", time.Hour)
	require.NoError(t, repo.Create(ctx, tok))
	require.True(t, m.Exists("test:refresh:h1"))

	got, err := repo.GetByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, tok.ID, got.ID)
	require.Equal(t, tok.OwnerID, got.OwnerID)
	require.False(t, got.Revoked)
	require.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))

	ok, err := repo.RevokeIfActive(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.RevokeIfActive(ctx, "h1")
	require.NoError(t, err)
	require.False(t, ok)

	got, err = repo.GetByHash(ctx, "h1")
	require.NoError(t, err)
	require.True(t, got.Revoked)
}

func TestRedisRepository_MissingAndDuplicate(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	got, err := repo.GetByHash(ctx, "absent")
	require.NoError(t, err)
	require.Nil(t, got)

	ok, err := repo.RevokeIfActive(ctx, "absent")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Create(ctx, sampleToken("dup", time.Hour)))
	require.ErrorIs(t, repo.Create(ctx, sampleToken("dup", time.Hour)), ErrDuplicateToken)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleToken("h2", 2*time.Second)))

	got, err := repo.GetByHash(ctx, "h2")
	require.NoError(t, err)
	require.NotNil(t, got)

	// advance miniredis clock past TTL
	m.FastForward(3 * time.Second)

	got, err = repo.GetByHash(ctx, "h2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_ConcurrentRevoke(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleToken("race", time.Hour)))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.RevokeIfActive(ctx, "race")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestRedisRepository_TTLFollowsRecordClock(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()

	issued := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := &RefreshToken{
		ID:        "id-past",
		TokenHash: "past",
		OwnerID:   "owner-1",
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, tok))
	require.Equal(t, time.Hour, m.TTL("test:refresh:past"))
}

func TestRedisRepository_ServiceWithFakeClock(t *testing.T) {
	repo, m := newRedisRepo(t)
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, demo)
	require.NoError(t, err)
	require.Equal(t, tokens.RefreshTokenTTL, m.TTL("test:refresh:"+HashToken(pair.RefreshToken)))

	rotated, err := svc.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
}
