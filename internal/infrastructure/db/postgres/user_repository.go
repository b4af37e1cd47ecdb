package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

const tableUsers = "users"

var userColumns = []string{
	"id", "username", "email", "password_hash", "role", "full_name", "is_active", "created_at", "last_login",
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func insertUserQuery(user *domain.User, id string) (string, []any, error) {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return psql.Insert(tableUsers).
		Columns("id", "username", "email", "password_hash", "role", "full_name", "is_active", "created_at").
		Values(id, user.Username, user.Email, user.PasswordHash, user.Role, user.FullName, user.IsActive, createdAt.UTC()).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
}

func selectUserQuery(where sq.Sqlizer) (string, []any, error) {
	return psql.Select(userColumns...).From(tableUsers).Where(where).Limit(1).ToSql()
}

// Create inserts user with a generated UUID.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query, args, err := insertUserQuery(user, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("build insert user: %w", err)
	}

	created, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, insertUserError(err)
	}
	return created, nil
}

// insertUserError names the column behind a unique violation so callers can
// tell a taken username from a taken email.
func insertUserError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return fmt.Errorf("insert user: %w", err)
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return domain.ErrUsernameExists
	case "users_email_key":
		return domain.ErrEmailExists
	}
	return domain.ErrUserExists
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"username": username})
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	return r.findOne(ctx, sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}})
}

func (r *UserRepository) findOne(ctx context.Context, where sq.Sqlizer) (*domain.User, error) {
	query, args, err := selectUserQuery(where)
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}

	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query, args, err := psql.Update(tableUsers).Set("last_login", at.UTC()).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update last login: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
