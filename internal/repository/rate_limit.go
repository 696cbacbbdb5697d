package repository

import (
	"context"
	"fmt"
	"time"

	"deal_room/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository - счетчики запросов в фиксированном окне
type RateLimitRepository interface {
	// Hit увеличивает счетчик ключа и возвращает его значение в текущем окне
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = fmt.Sprintf("dealroom:ratelimit:%s", key)

	pipe := r.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("Failed to increment rate limit", "error", err)
		return 0, err
	}

	return incr.Val(), nil
}
