package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRevoker struct {
	rdb *redis.Client
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("revoked_token_%s", tokenID)
}

func (rv *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := rv.rdb.Get(ctx, revokedKey(tokenID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

// Revoke 的记录只需要保留到令牌本身过期
func (rv *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return rv.rdb.Set(ctx, revokedKey(tokenID), 1, ttl).Err()
}
