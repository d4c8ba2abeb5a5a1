package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokeIfActiveScript returns -1 when the key is missing, 0 when already
// revoked and 1 when this call flipped the flag.
var revokeIfActiveScript = redis.NewScript(`
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked then
  return -1
end
if revoked == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1")
return 1
`)

var createScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "id", ARGV[1], "owner", ARGV[2], "issuedAt", ARGV[3], "expiresAt", ARGV[4], "revoked", ARGV[5])
redis.call("PEXPIRE", KEYS[1], ARGV[6])
return 1
`)

// RedisRepository implements Repository using Redis as the backing store.
// Each token is a hash under "<prefix><tokenHash>" that expires with the token.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based refresh token repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "refresh:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(hash string) string {
	return r.prefix + hash
}

func (r *RedisRepository) Create(ctx context.Context, t *RefreshToken) error {
	// lifetime comes from the record so the caller's clock decides expiry
	ttl := t.ExpiresAt.Sub(t.IssuedAt)
	if ttl <= 0 {
		// ensure a minimal TTL so Redis won't keep expired tokens
		ttl = time.Second
	}
	created, err := createScript.Run(ctx, r.client, []string{r.key(t.TokenHash)},
		t.ID,
		t.OwnerID,
		t.IssuedAt.UTC().Format(time.RFC3339Nano),
		t.ExpiresAt.UTC().Format(time.RFC3339Nano),
		boolField(t.Revoked),
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrDuplicateToken
	}
	return nil
}

func (r *RedisRepository) GetByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, r.key(hash)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	t := &RefreshToken{
		ID:        fields["id"],
		TokenHash: hash,
		OwnerID:   fields["owner"],
		Revoked:   fields["revoked"] == "1",
	}
	if t.IssuedAt, err = time.Parse(time.RFC3339Nano, fields["issuedAt"]); err != nil {
		return nil, fmt.Errorf("sessions: corrupt refresh token %s: %w", t.ID, err)
	}
	if t.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expiresAt"]); err != nil {
		return nil, fmt.Errorf("sessions: corrupt refresh token %s: %w", t.ID, err)
	}
	return t, nil
}

func (r *RedisRepository) RevokeIfActive(ctx context.Context, hash string) (bool, error) {
	res, err := revokeIfActiveScript.Run(ctx, r.client, []string{r.key(hash)}).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
