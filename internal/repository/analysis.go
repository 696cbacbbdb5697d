package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deal_room/internal/domain"
	apperrors "deal_room/pkg/errors"
	"deal_room/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// AnalysisRepository - кэш результатов анализа сообщений с TTL
type AnalysisRepository interface {
	Save(ctx context.Context, analysis *domain.MessageAnalysis, ttl time.Duration) error
	Get(ctx context.Context, messageID string) (*domain.MessageAnalysis, error)
}

type analysisRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewAnalysisRepository(redis *redis.Client, log logger.Logger) AnalysisRepository {
	return &analysisRepository{redis: redis, log: log}
}

func analysisKey(messageID string) string {
	return fmt.Sprintf("dealroom:analysis:%s", messageID)
}

func (r *analysisRepository) Save(ctx context.Context, analysis *domain.MessageAnalysis, ttl time.Duration) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	if err := r.redis.Set(ctx, analysisKey(analysis.MessageID), data, ttl).Err(); err != nil {
		r.log.Error("Failed to cache message analysis", "message_id", analysis.MessageID, "error", err)
		return err
	}

	return nil
}

func (r *analysisRepository) Get(ctx context.Context, messageID string) (*domain.MessageAnalysis, error) {
	data, err := r.redis.Get(ctx, analysisKey(messageID)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to get message analysis", "message_id", messageID, "error", err)
		return nil, err
	}

	var analysis domain.MessageAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}

	return &analysis, nil
}
