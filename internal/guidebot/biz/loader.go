package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/internal/guidebot/store"
	"github.com/kart-io/guidebot/pkg/llm"
)

// LoadFunc 加载单条语料：嵌入后写入存储。
type LoadFunc func(ctx context.Context, passage string) error

// LoadStrategy 决定语料的加载方式。
// Run 必须尝试每一条语料，返回与 passages 等长的错误切片，成功的位置为 nil。
type LoadStrategy interface {
	Name() string
	Run(ctx context.Context, passages []string, load LoadFunc) []error
}

// SequentialStrategy 按顺序逐条加载。
type SequentialStrategy struct{}

// Name implements LoadStrategy.
func (SequentialStrategy) Name() string { return "sequential" }

// Run implements LoadStrategy.
func (SequentialStrategy) Run(ctx context.Context, passages []string, load LoadFunc) []error {
	errs := make([]error, len(passages))
	for i, p := range passages {
		errs[i] = load(ctx, p)
	}
	return errs
}

// Submitter 任务提交接口，pool.Pool 满足该接口。
type Submitter interface {
	Submit(task func()) error
}

// PooledStrategy 在工作池上并发加载，并发度由池容量决定。
type PooledStrategy struct {
	pool Submitter
}

// NewPooledStrategy 创建并发加载策略。
func NewPooledStrategy(pool Submitter) *PooledStrategy {
	return &PooledStrategy{pool: pool}
}

// Name implements LoadStrategy.
func (s *PooledStrategy) Name() string { return "pooled" }

// Run implements LoadStrategy.
// 提交失败的语料直接记为失败，不会重试。
func (s *PooledStrategy) Run(ctx context.Context, passages []string, load LoadFunc) []error {
	errs := make([]error, len(passages))

	var wg sync.WaitGroup
	for i, p := range passages {
		i, p := i, p
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			errs[i] = load(ctx, p)
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit passage: %w", err)
		}
	}
	wg.Wait()

	return errs
}

// LoadReport 一次加载的结果。
type LoadReport struct {
	Strategy string        `json:"strategy"`
	Total    int           `json:"total"`
	Loaded   int           `json:"loaded"`
	Failed   int           `json:"failed"`
	Guides   int           `json:"guides"`
	Duration time.Duration `json:"duration"`
}

// CorpusLoader 把语料嵌入后写入 GuideStore。
type CorpusLoader struct {
	embedder *Embedder
	store    store.GuideStore
	strategy LoadStrategy
	log      Logger
	metrics  *metrics.Metrics
}

// LoaderOption 配置 CorpusLoader。
type LoaderOption func(*CorpusLoader)

// WithStrategy 设置加载策略，默认 SequentialStrategy。
func WithStrategy(s LoadStrategy) LoaderOption {
	return func(l *CorpusLoader) {
		if s != nil {
			l.strategy = s
		}
	}
}

// WithLoaderLogger 设置日志。
func WithLoaderLogger(log Logger) LoaderOption {
	return func(l *CorpusLoader) { l.log = orGlobal(log) }
}

// WithLoaderMetrics 设置指标收集。
func WithLoaderMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *CorpusLoader) { l.metrics = m }
}

// NewCorpusLoader 创建语料加载器。
func NewCorpusLoader(provider llm.EmbeddingProvider, s store.GuideStore, opts ...LoaderOption) *CorpusLoader {
	l := &CorpusLoader{
		embedder: NewEmbedder(provider),
		store:    s,
		strategy: SequentialStrategy{},
		log:      globalLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load 加载所有语料。单条失败不会中断其他语料，全部尝试后以聚合错误返回；
// 即使返回错误，report 也不为 nil。
func (l *CorpusLoader) Load(ctx context.Context, passages []string) (*LoadReport, error) {
	start := time.Now()
	report := &LoadReport{
		Strategy: l.strategy.Name(),
		Total:    len(passages),
	}

	results := l.strategy.Run(ctx, passages, l.loadOne)

	var errs []error
	for i, err := range results {
		if err != nil {
			errs = append(errs, fmt.Errorf("passage %d: %w", i, err))
			continue
		}
		report.Loaded++
	}
	report.Failed = len(errs)
	report.Duration = time.Since(start)

	if n, err := l.store.Count(ctx); err == nil {
		report.Guides = n
	}

	if l.metrics != nil {
		l.metrics.RecordCorpusLoad(report.Loaded, report.Failed)
	}

	if len(errs) > 0 {
		agg := utilerrors.NewAggregate(errs)
		l.log.Errorw("Corpus load finished with failures",
			"strategy", report.Strategy,
			"total", report.Total,
			"loaded", report.Loaded,
			"failed", report.Failed,
			"error", agg.Error(),
		)
		return report, ErrCorpusLoadFailed.WithCause(agg)
	}

	l.log.Infow("Corpus loaded",
		"strategy", report.Strategy,
		"total", report.Total,
		"guides", report.Guides,
		"duration", report.Duration.String(),
	)
	return report, nil
}

func (l *CorpusLoader) loadOne(ctx context.Context, passage string) error {
	vec, err := l.embedder.Embed(ctx, passage)
	if err != nil {
		return err
	}
	return l.store.Upsert(ctx, passage, vec)
}

// StartupLoad 服务启动后在后台加载语料，不阻塞服务启动。
type StartupLoad struct {
	loader   *CorpusLoader
	passages []string
	log      Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStartupLoad 创建启动加载任务。
func NewStartupLoad(loader *CorpusLoader, passages []string, log Logger) *StartupLoad {
	return &StartupLoad{loader: loader, passages: passages, log: orGlobal(log)}
}

// Name 返回组件名称。
func (s *StartupLoad) Name() string { return "corpus-startup-load" }

// Start 在后台开始加载。
func (s *StartupLoad) Start(ctx context.Context) error {
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if _, err := s.loader.Load(loadCtx, s.passages); err != nil {
			s.log.Errorw("Startup corpus load failed", "error", err.Error())
		}
	}()
	return nil
}

// Stop 取消未完成的加载并等待其退出。
func (s *StartupLoad) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait 等待加载结束，测试中使用。
func (s *StartupLoad) Wait() {
	if s.done != nil {
		<-s.done
	}
}
