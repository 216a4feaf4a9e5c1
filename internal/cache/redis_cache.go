package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aura-health/retina-ai-core/internal/logger"
	"github.com/aura-health/retina-ai-core/pkg/models"
)

// ResultCache stores completed analysis results keyed by source image.
// A cache miss is not an error; callers fall through to a full analysis.
type ResultCache interface {
	Get(ctx context.Context, imageURL string) (*models.AnalysisResult, bool)
	Set(ctx context.Context, imageURL string, result *models.AnalysisResult)
}

const keyPrefix = "retina:analysis:"

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) ResultCache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func cacheKey(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *redisCache) Get(ctx context.Context, imageURL string) (*models.AnalysisResult, bool) {
	raw, err := c.client.Get(ctx, cacheKey(imageURL)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithError(err).Warn("result cache read failed")
		}
		return nil, false
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.WithError(err).Warn("result cache entry corrupt, ignoring")
		return nil, false
	}
	return &result, true
}

func (c *redisCache) Set(ctx context.Context, imageURL string, result *models.AnalysisResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		logger.WithError(err).Warn("result cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, cacheKey(imageURL), raw, c.ttl).Err(); err != nil {
		logger.WithError(err).Warn("result cache write failed")
	}
}

// NoopCache disables caching; every request runs the full pipeline.
type NoopCache struct{}

func (NoopCache) Get(ctx context.Context, imageURL string) (*models.AnalysisResult, bool) {
	return nil, false
}

func (NoopCache) Set(ctx context.Context, imageURL string, result *models.AnalysisResult) {}
