package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

const (
	collectionRefreshTokens = "refresh_tokens"

	// defaultExpiredRetention matches the default refresh token lifetime.
	defaultExpiredRetention = 7 * 24 * time.Hour
)

type RefreshTokenRepository struct {
	col       *mongo.Collection
	users     *UserRepository
	retention time.Duration
}

// NewRefreshTokenRepository keeps expired tokens for retention before the TTL
// monitor removes them, so an expired token is still reported as expired
// rather than unknown.
func NewRefreshTokenRepository(db *mongo.Database, users *UserRepository, retention time.Duration) *RefreshTokenRepository {
	if retention <= 0 {
		retention = defaultExpiredRetention
	}
	return &RefreshTokenRepository{col: db.Collection(collectionRefreshTokens), users: users, retention: retention}
}

type mongoRefreshToken struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	IssuedAt  time.Time `bson:"issued_at"`
	ExpiresAt time.Time `bson:"expires_at"`
	Revoked   bool      `bson:"revoked"`
}

func (m mongoRefreshToken) toDomain() *domain.RefreshToken {
	return &domain.RefreshToken{
		Token:     m.Token,
		UserID:    m.UserID,
		IssuedAt:  m.IssuedAt.UTC(),
		ExpiresAt: m.ExpiresAt.UTC(),
		Revoked:   m.Revoked,
	}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, mongoRefreshToken{
		Token:     t.Token,
		UserID:    t.UserID,
		IssuedAt:  t.IssuedAt.UTC(),
		ExpiresAt: t.ExpiresAt.UTC(),
		Revoked:   t.Revoked,
	})
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) Find(ctx context.Context, token string) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoRefreshToken
	if err := r.col.FindOne(ctx, bson.M{"token": token}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return m.toDomain(), nil
}

// FindUserByToken resolves the owner of token. An unknown token yields
// domain.ErrUserNotFound, matching a join that returns no row.
func (r *RefreshTokenRepository) FindUserByToken(ctx context.Context, token string) (*domain.User, error) {
	t, err := r.Find(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.users.FindByID(ctx, t.UserID)
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"token": token}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateMany(ctx, bson.M{"user_id": userID, "revoked": false}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) ListActive(ctx context.Context, userID string) ([]*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"user_id": userID, "revoked": false})
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRefreshToken
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode refresh tokens: %w", err)
	}

	out := make([]*domain.RefreshToken, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the token lookup index and a TTL index that drops
// tokens once their retention window has passed.
func (r *RefreshTokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, refreshTokenIndexes(r.retention))
	return err
}

func refreshTokenIndexes(retention time.Duration) []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "revoked", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(retention / time.Second))},
	}
}
