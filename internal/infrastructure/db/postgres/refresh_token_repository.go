package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

const tableRefreshTokens = "refresh_tokens"

var refreshTokenColumns = []string{"token", "user_id", "issued_at", "expires_at", "revoked"}

type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := row.Scan(&t.Token, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &t.Revoked); err != nil {
		return nil, err
	}
	t.IssuedAt = t.IssuedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	return &t, nil
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	query, args, err := psql.Insert(tableRefreshTokens).
		Columns(refreshTokenColumns...).
		Values(t.Token, t.UserID, t.IssuedAt.UTC(), t.ExpiresAt.UTC(), t.Revoked).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) Find(ctx context.Context, token string) (*domain.RefreshToken, error) {
	query, args, err := psql.Select(refreshTokenColumns...).From(tableRefreshTokens).Where(sq.Eq{"token": token}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token: %w", err)
	}

	t, err := scanRefreshToken(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return t, nil
}

func userByTokenQuery(token string) (string, []any, error) {
	cols := make([]string, len(userColumns))
	for i, c := range userColumns {
		cols[i] = "u." + c
	}
	return psql.Select(cols...).
		From(tableUsers + " u").
		Join(tableRefreshTokens + " rt ON rt.user_id = u.id").
		Where(sq.Eq{"rt.token": token}).
		ToSql()
}

// FindUserByToken joins the token to its owner. No row yields domain.ErrUserNotFound.
func (r *RefreshTokenRepository) FindUserByToken(ctx context.Context, token string) (*domain.User, error) {
	query, args, err := userByTokenQuery(token)
	if err != nil {
		return nil, fmt.Errorf("build select token owner: %w", err)
	}

	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find token owner: %w", err)
	}
	return u, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	query, args, err := psql.Update(tableRefreshTokens).Set("revoked", true).Where(sq.Eq{"token": token}).ToSql()
	if err != nil {
		return fmt.Errorf("build revoke refresh token: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	query, args, err := psql.Update(tableRefreshTokens).
		Set("revoked", true).
		Where(sq.Eq{"user_id": userID, "revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke refresh tokens: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) ListActive(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	query, args, err := psql.Select(refreshTokenColumns...).
		From(tableRefreshTokens).
		Where(sq.Eq{"user_id": userID, "revoked": false}).
		Where("expires_at > now()").
		OrderBy("issued_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list refresh tokens: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	var out []*domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
