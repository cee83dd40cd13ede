package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	guardKeyPrefix = "vitals-bridge:submission:"
	releaseTimeout = 5 * time.Second
)

// Deletes the key only if it's still held with the token of the releasing submission
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard holds the in-flight submissions in redis so the guard spans all bridge instances.
// Keys expire after the ttl in case a bridge instance dies before releasing them.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

var _ Guard = &RedisGuard{}

func NewRedisGuard(client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *RedisGuard {
	return &RedisGuard{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := guardKeyPrefix + key
	token := uuid.NewString()

	acquired, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("unable to acquire submission guard: %w", err)
	}
	if !acquired {
		return nil, ErrAlreadySending
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, g.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
			g.logger.Warnw("unable to release submission guard", "key", redisKey, zap.Error(err))
		}
	}, nil
}

func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
