package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/guidebot/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// Enabled 是否启用缓存。
	Enabled bool
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       24 * time.Hour, // 语料稳定，向量可以缓存较长时间
		KeyPrefix: "emb:",
	}
}

// RedisCmdable 是缓存用到的 Redis 命令子集，*goredis.Client 直接满足。
type RedisCmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// CachedEmbeddingProvider 提供 Embedding 缓存功能的包装器。
// Redis 出错时回退到底层 provider，缓存永远不会让调用失败。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    RedisCmdable
	config   *EmbeddingCacheConfig
}

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider。
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis RedisCmdable,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

// cacheKey 基于文本生成缓存键（SHA256 哈希，避免原文出现在 Redis 中）。
func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Embed 生成文本的 Embedding（带缓存）。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled || c.redis == nil {
		return c.provider.Embed(ctx, text)
	}

	key := c.cacheKey(text)

	// 1. 尝试从缓存获取
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err == nil && len(embedding) > 0 {
			logger.Debugw("embedding cache hit", "key", key)
			return embedding, nil
		}
		// 损坏的缓存直接删除
		logger.Warnw("invalid cached embedding, deleting", "key", key)
		_ = c.redis.Del(ctx, key).Err()
	case errors.Is(err, goredis.Nil):
	default:
		logger.Warnw("redis get error, falling back to provider", "error", err.Error())
	}

	// 2. 缓存未命中，调用底层 provider
	embedding, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// 3. 缓存结果，失败不影响返回
	data, err = json.Marshal(embedding)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return embedding, nil
	}
	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", key)
	}

	return embedding, nil
}

// Name 返回底层 provider 的名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// 确保 CachedEmbeddingProvider 实现了 EmbeddingProvider 接口。
var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)
