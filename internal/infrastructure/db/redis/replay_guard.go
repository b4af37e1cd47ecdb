package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// minClaimTTL keeps a claim alive briefly even for tokens at the edge of expiry.
const minClaimTTL = time.Minute

// ReplayGuard records refresh tokens that have been exchanged so a second
// exchange of the same token can be detected.
// Key format: refresh:used:<sha256(token)>
type ReplayGuard struct {
	client redis.Cmdable
}

// NewReplayGuard creates a ReplayGuard wrapping the given Redis client.
func NewReplayGuard(client redis.Cmdable) *ReplayGuard {
	return &ReplayGuard{client: client}
}

// Claim marks token as used. It reports false when another exchange already
// claimed it.
func (g *ReplayGuard) Claim(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	if ttl < minClaimTTL {
		ttl = minClaimTTL
	}
	ok, err := g.client.SetNX(ctx, g.key(token), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay guard claim: %w", err)
	}
	return ok, nil
}

func (g *ReplayGuard) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "refresh:used:" + hex.EncodeToString(sum[:])
}
