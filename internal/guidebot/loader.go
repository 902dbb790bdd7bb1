package guidebot

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/internal/guidebot/biz"
	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/pkg/component/storage"
	logopts "github.com/kart-io/guidebot/pkg/options/logger"
)

// LoaderConfig guide-loader 的配置。
type LoaderConfig struct {
	StorageConfig

	LogOptions *logopts.Options
}

// Load 把语料一次性写入持久化存储并返回加载报告。
// 部分段落失败时同时返回报告和错误。
func (cfg *LoaderConfig) Load(ctx context.Context) (*biz.LoadReport, error) {
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	passages, err := cfg.passages()
	if err != nil {
		return nil, err
	}

	storageMgr := storage.NewManager()
	defer func() {
		if err := storageMgr.CloseAll(); err != nil {
			logger.Warnw("Failed to close storage", "error", err.Error())
		}
	}()

	guideStore, err := cfg.openStore(ctx, storageMgr)
	if err != nil {
		return nil, err
	}
	provider, err := cfg.newEmbeddingProvider(ctx, storageMgr)
	if err != nil {
		return nil, err
	}

	loader, corpusPool, err := cfg.newLoader(provider, guideStore, metrics.New())
	if err != nil {
		return nil, err
	}
	if corpusPool != nil {
		defer corpusPool.Release()
	}

	logger.Infow("Loading guide corpus",
		"backend", cfg.StoreOptions.Backend,
		"passages", len(passages),
		"strategy", cfg.CorpusOptions.Strategy,
	)
	return loader.Load(ctx, passages)
}
