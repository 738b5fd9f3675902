// Package blacklist keeps the per-user "logout everywhere" denials in Redis.
//
// One hash per user, <namespace>:blacklist:<user_id>, holds two fields:
// revoked, the signature that was current when the user logged out
// everywhere, and successor, the signature that replaced it. An access token
// is denied when its correlation id equals revoked, or when a successor is
// recorded and the correlation id differs from it. The second rule catches
// tokens signed with even older signatures without a database lookup.
package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldRevoked   = "revoked"
	fieldSuccessor = "successor"
)

// Cache is the read/write surface the services use.
type Cache interface {
	Deny(ctx context.Context, userID, revoked, successor string) error
	IsDenied(ctx context.Context, userID, signature string) (bool, error)
}

type RedisBlacklist struct {
	rdb       redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedisBlacklist stores entries under namespace and lets them expire
// after ttl. ttl must be at least the access token lifetime.
func NewRedisBlacklist(rdb redis.UniversalClient, namespace string, ttl time.Duration) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb, namespace: namespace, ttl: ttl}
}

func (b *RedisBlacklist) key(userID string) string {
	return fmt.Sprintf("%s:blacklist:%s", b.namespace, userID)
}

// Deny overwrites the user's entry and restarts its TTL.
func (b *RedisBlacklist) Deny(ctx context.Context, userID, revoked, successor string) error {
	key := b.key(userID)
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldRevoked, revoked, fieldSuccessor, successor)
		pipe.Expire(ctx, key, b.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("blacklist deny: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsDenied(ctx context.Context, userID, signature string) (bool, error) {
	entry, err := b.rdb.HGetAll(ctx, b.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	if len(entry) == 0 {
		return false, nil
	}
	if revoked, ok := entry[fieldRevoked]; ok && revoked == signature {
		return true, nil
	}
	if successor := entry[fieldSuccessor]; successor != "" && successor != signature {
		return true, nil
	}
	return false, nil
}

// Ping reports whether Redis is reachable.
func (b *RedisBlacklist) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
