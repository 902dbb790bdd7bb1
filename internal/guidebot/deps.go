package guidebot

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/internal/guidebot/biz"
	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/internal/guidebot/store"
	"github.com/kart-io/guidebot/pkg/component/redis"
	"github.com/kart-io/guidebot/pkg/component/storage"
	"github.com/kart-io/guidebot/pkg/infra/pool"
	"github.com/kart-io/guidebot/pkg/llm"
	cacheopts "github.com/kart-io/guidebot/pkg/options/cache"
	corpusopts "github.com/kart-io/guidebot/pkg/options/corpus"
	dbopts "github.com/kart-io/guidebot/pkg/options/database"
	llmopts "github.com/kart-io/guidebot/pkg/options/llm"
	mongoopts "github.com/kart-io/guidebot/pkg/options/mongodb"
	storeopts "github.com/kart-io/guidebot/pkg/options/store"

	// 注册 LLM 供应商
	_ "github.com/kart-io/guidebot/pkg/llm/grok"
	_ "github.com/kart-io/guidebot/pkg/llm/huggingface"
)

// StorageConfig 语料存储与嵌入相关配置，服务与 guide-loader 共用。
type StorageConfig struct {
	StoreOptions     *storeopts.Options
	MongoDBOptions   *mongoopts.Options
	DatabaseOptions  *dbopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	CacheOptions     *cacheopts.Options
	CorpusOptions    *corpusopts.Options
}

// openStore 打开语料存储，连接注册到 mgr。
func (cfg *StorageConfig) openStore(ctx context.Context, mgr *storage.Manager) (store.GuideStore, error) {
	return store.New(ctx, &store.Config{
		Store:    cfg.StoreOptions,
		MongoDB:  cfg.MongoDBOptions,
		Database: cfg.DatabaseOptions,
	}, mgr)
}

// newEmbeddingProvider 创建嵌入供应商。启用缓存且 Redis 可达时包装一层缓存，
// Redis 不可达只告警，不影响启动。
func (cfg *StorageConfig) newEmbeddingProvider(ctx context.Context, mgr *storage.Manager) (llm.EmbeddingProvider, error) {
	provider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", provider.Name(),
		"timeout", cfg.EmbeddingOptions.Timeout.String(),
	)

	if cfg.CacheOptions == nil || !cfg.CacheOptions.Enabled {
		logger.Info("Embedding cache is disabled")
		return provider, nil
	}

	client, err := redis.New(ctx, cfg.CacheOptions.Redis)
	if err != nil {
		logger.Warnw("Failed to connect to redis, embedding cache will be disabled",
			"addr", cfg.CacheOptions.Redis.Addr(),
			"error", err.Error(),
		)
		return provider, nil
	}
	if err := mgr.Register("embedding-cache", client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Infow("Embedding cache initialized",
		"addr", cfg.CacheOptions.Redis.Addr(),
		"ttl", cfg.CacheOptions.TTL.String(),
	)
	return llm.NewCachedEmbeddingProvider(provider, client.Client(), &llm.EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
	}), nil
}

// newLoader 按 corpus.strategy 创建语料加载器。并发策略返回的池由调用方释放。
func (cfg *StorageConfig) newLoader(provider llm.EmbeddingProvider, s store.GuideStore, m *metrics.Metrics) (*biz.CorpusLoader, *pool.Pool, error) {
	opts := []biz.LoaderOption{biz.WithLoaderMetrics(m)}

	var corpusPool *pool.Pool
	if cfg.CorpusOptions.Strategy == corpusopts.StrategyPooled {
		p, err := pool.NewPool(pool.CorpusPool, pool.CorpusPoolConfig(cfg.CorpusOptions.Concurrency))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create corpus pool: %w", err)
		}
		corpusPool = p
		opts = append(opts, biz.WithStrategy(biz.NewPooledStrategy(p)))
	}

	return biz.NewCorpusLoader(provider, s, opts...), corpusPool, nil
}

// passages 返回待加载的语料。
func (cfg *StorageConfig) passages() ([]string, error) {
	passages, err := biz.ResolvePassages(cfg.CorpusOptions.File)
	if err != nil {
		return nil, biz.ErrCorpusLoadFailed.WithCause(err)
	}
	return passages, nil
}
