package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/infrastructure/config"
)

const defaultLockKeyPrefix = "crm:sync:lock:"

// releaseScript deletes the key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock implements RunLock with SET NX PX on a single key
type RedisRunLock struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
}

// NewRedisRunLock connects to Redis and creates a run lock
func NewRedisRunLock(cfg config.RedisConfig) (*RedisRunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRunLock{
		client:     client,
		ownsClient: true,
		keyPrefix:  defaultLockKeyPrefix,
	}, nil
}

// NewRedisRunLockWithClient creates a lock on an existing client.
// The caller keeps ownership of the client.
func NewRedisRunLockWithClient(client *redis.Client, keyPrefix string) *RedisRunLock {
	if keyPrefix == "" {
		keyPrefix = defaultLockKeyPrefix
	}
	return &RedisRunLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire takes the named lock for ttl and returns the holder token
func (l *RedisRunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+name, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return "", integration.ErrSyncAlreadyInProgress
	}
	return token, nil
}

// Release frees the lock if token still holds it
func (l *RedisRunLock) Release(ctx context.Context, name, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + name}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	if n == 0 {
		return integration.ErrSyncLockNotHeld
	}
	return nil
}

// Ping checks the Redis connection
func (l *RedisRunLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client when the lock created it
func (l *RedisRunLock) Close() error {
	if !l.ownsClient {
		return nil
	}
	return l.client.Close()
}

// Ensure RedisRunLock implements RunLock
var _ integration.RunLock = (*RedisRunLock)(nil)
