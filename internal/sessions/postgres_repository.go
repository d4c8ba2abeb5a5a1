package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const refreshTokensSchema = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	id          TEXT PRIMARY KEY,
	token_hash  TEXT NOT NULL UNIQUE,
	owner_id    TEXT NOT NULL,
	issued_at   TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL,
	revoked     BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS refresh_tokens_expires_at_idx ON refresh_tokens (expires_at);
`

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the refresh_tokens table when it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const op = "sessions.postgres.EnsureSchema"

	if _, err := r.db.Exec(ctx, refreshTokensSchema); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *RefreshToken) error {
	const op = "sessions.postgres.Create"

	query := `
		INSERT INTO refresh_tokens (id, token_hash, owner_id, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query, t.ID, t.TokenHash, t.OwnerID, t.IssuedAt, t.ExpiresAt, t.Revoked)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, ErrDuplicateToken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	const op = "sessions.postgres.GetByHash"

	query := `
		SELECT id, token_hash, owner_id, issued_at, expires_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var t RefreshToken
	err := r.db.QueryRow(ctx, query, hash).Scan(
		&t.ID,
		&t.TokenHash,
		&t.OwnerID,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.Revoked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

// RevokeIfActive relies on the row lock taken by UPDATE: of two concurrent
// callers only one sees revoked = FALSE.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, hash string) (bool, error) {
	const op = "sessions.postgres.RevokeIfActive"

	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token_hash = $1 AND revoked = FALSE
		RETURNING id
	`

	var id string
	err := r.db.QueryRow(ctx, query, hash).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// DeleteExpired removes tokens that expired at or before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "sessions.postgres.DeleteExpired"

	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}
