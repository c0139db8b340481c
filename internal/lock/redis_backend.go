package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "snmptrapd-core/pkg/errors"
)

// RedisBackend is a distributed SourceLocker backend, letting
// snmpconsole_lock serialize sources across more than one core
// instance (SPEC_FULL.md §4).
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend dials addr and verifies connectivity with a 5s ping,
// in the same pattern as tokyoyoyo-baize-monitor's
// NewRedisDistributedLocker.
func NewRedisBackend(addr, password string, db int, ttlSeconds int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "lock", "NewRedisBackend",
			"cannot connect to redis").Wrap(err).WithMetadata("addr", addr)
	}

	return &RedisBackend{client: client, ttl: time.Duration(ttlSeconds) * time.Second}, nil
}

// Acquire takes the distributed lock for source via SETNX.
func (b *RedisBackend) Acquire(source string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := b.client.SetNX(ctx, lockKey(source), "locked", b.ttl).Result()
	if err != nil {
		return false, apperrors.New(apperrors.CodePersistFailed, "lock", "Acquire",
			"redis setnx failed").Wrap(err)
	}
	return ok, nil
}

// Release deletes the distributed lock for source.
func (b *RedisBackend) Release(source string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.client.Del(ctx, lockKey(source)).Err(); err != nil {
		return apperrors.New(apperrors.CodePersistFailed, "lock", "Release",
			"redis del failed").Wrap(err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func lockKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return fmt.Sprintf("snmptrapd_lock:%s", hex.EncodeToString(sum[:]))
}
