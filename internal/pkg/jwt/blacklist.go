package jwt

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistKeyPrefix = "jwt:blacklist:"

// Blacklist 已注销令牌，键在令牌过期后自动消失
type Blacklist struct {
	rdb *redis.Client
}

func NewBlacklist(rdb *redis.Client) *Blacklist {
	return &Blacklist{rdb: rdb}
}

// Revoke 拉黑令牌直到其过期
func (b *Blacklist) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistKeyPrefix+claims.ID, 1, ttl).Err()
}

// IsRevoked 查询令牌是否已注销
func (b *Blacklist) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if claims.ID == "" {
		return false, nil
	}
	n, err := b.rdb.Exists(ctx, blacklistKeyPrefix+claims.ID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
