// Package guidebot 组装 guidebot 服务：语料存储、嵌入与生成供应商、
// 查询流水线、消息转发以及 HTTP 服务。
package guidebot

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/internal/guidebot/biz"
	"github.com/kart-io/guidebot/internal/guidebot/handler"
	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/internal/guidebot/router"
	"github.com/kart-io/guidebot/pkg/component/storage"
	"github.com/kart-io/guidebot/pkg/infra/app"
	"github.com/kart-io/guidebot/pkg/infra/pool"
	"github.com/kart-io/guidebot/pkg/infra/resilience"
	"github.com/kart-io/guidebot/pkg/infra/server"
	"github.com/kart-io/guidebot/pkg/infra/tracing"
	"github.com/kart-io/guidebot/pkg/llm"
	httpopts "github.com/kart-io/guidebot/pkg/options/http"
	jwtopts "github.com/kart-io/guidebot/pkg/options/jwt"
	llmopts "github.com/kart-io/guidebot/pkg/options/llm"
	logopts "github.com/kart-io/guidebot/pkg/options/logger"
	ragopts "github.com/kart-io/guidebot/pkg/options/rag"
	redactopts "github.com/kart-io/guidebot/pkg/options/redact"
	relayopts "github.com/kart-io/guidebot/pkg/options/relay"
	"github.com/kart-io/guidebot/pkg/relay"
	"github.com/kart-io/guidebot/pkg/relay/whatsapp"
	"github.com/kart-io/guidebot/pkg/security/auth/jwt"
	"github.com/kart-io/guidebot/pkg/security/redact"
)

// Name is the name of the application.
const Name = "guidebot"

// Config contains application-related configurations.
type Config struct {
	StorageConfig

	HTTPOptions       *httpopts.Options
	LogOptions        *logopts.Options
	TracingOptions    *tracing.Options
	JWTOptions        *jwtopts.Options
	RedactOptions     *redactopts.Options
	GenerationOptions *llmopts.ProviderOptions
	RAGOptions        *ragopts.Options
	RelayOptions      *relayopts.Options
}

// Server represents the guidebot server.
type Server struct {
	srv     *server.Manager
	closers []func(context.Context) error
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (_ *Server, err error) {
	s := &Server{}
	defer func() {
		if err != nil {
			s.close(context.Background())
		}
	}()

	// 1. 初始化日志
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting guidebot service...", "version", app.GetVersion())

	// 2. 初始化链路追踪
	tp, err := tracing.NewProvider(cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.closers = append(s.closers, tp.Shutdown)
	logger.Infow("Tracing initialized", "enabled", tp.Enabled())

	// 3. 初始化语料存储
	storageMgr := storage.NewManager()
	s.closers = append(s.closers, func(context.Context) error { return storageMgr.CloseAll() })

	guideStore, err := cfg.openStore(ctx, storageMgr)
	if err != nil {
		return nil, err
	}

	// 4. 初始化 LLM 供应商（嵌入可带 Redis 缓存）
	embedProvider, err := cfg.newEmbeddingProvider(ctx, storageMgr)
	if err != nil {
		return nil, err
	}
	genProvider, err := llm.NewGenerationProvider(cfg.GenerationOptions.Provider, cfg.GenerationOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation provider: %w", err)
	}
	logger.Infow("Generation provider initialized",
		"provider", genProvider.Name(),
		"timeout", cfg.GenerationOptions.Timeout.String(),
	)

	// 5. 初始化认证与审计
	authn, err := jwt.New(jwt.WithOptions(cfg.JWTOptions))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	sealer, err := redact.New(cfg.RedactOptions.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit sealer: %w", err)
	}

	// 6. 初始化消息转发
	m := metrics.Default()
	pipelineOpts := []biz.PipelineOption{
		biz.WithPipelineMetrics(m),
		biz.WithRelayTimeout(cfg.RelayOptions.Timeout, cfg.RelayOptions.Wait),
	}
	var pools []handler.PoolStatser
	if cfg.RelayOptions.Enabled {
		r, err := cfg.newRelay()
		if err != nil {
			return nil, err
		}
		relayPool, err := pool.NewPool(pool.RelayPool, pool.RelayPoolConfig(cfg.RelayOptions.PoolSize))
		if err != nil {
			return nil, fmt.Errorf("failed to create relay pool: %w", err)
		}
		s.closers = append(s.closers, releasePool(relayPool))
		pools = append(pools, relayPool)
		pipelineOpts = append(pipelineOpts, biz.WithRelay(r, relayPool, cfg.RelayOptions.From))
		logger.Infow("Relay initialized",
			"relay", r.Name(),
			"pool_size", relayPool.Cap(),
			"breaker_threshold", cfg.RelayOptions.BreakerThreshold,
		)
	} else {
		logger.Info("Relay is disabled")
	}

	// 7. 初始化 Biz 层
	loader, corpusPool, err := cfg.newLoader(embedProvider, guideStore, m)
	if err != nil {
		return nil, err
	}
	if corpusPool != nil {
		s.closers = append(s.closers, releasePool(corpusPool))
		pools = append(pools, corpusPool)
	}
	assembler := biz.NewContextAssembler(embedProvider, guideStore, cfg.RAGOptions.TopK)
	generator := biz.NewResponseGenerator(genProvider)
	pipeline := biz.NewQueryPipeline(assembler, generator, sealer, pipelineOpts...)
	logger.Infow("Query pipeline initialized",
		"top_k", cfg.RAGOptions.TopK,
		"corpus.strategy", cfg.CorpusOptions.Strategy,
	)

	// 8. 初始化 HTTP 服务与路由
	httpServer := server.NewHTTPServer(cfg.HTTPOptions)
	router.Register(httpServer.Engine(), router.Handlers{
		Chat:    handler.NewChatHandler(pipeline),
		Health:  handler.NewHealthHandler(guideStore),
		Metrics: handler.NewMetricsHandler(m, pools...),
	}, authn)

	// 9. 组装服务管理器
	mgr := server.NewManager(cfg.HTTPOptions.ShutdownTimeout)
	mgr.Add(httpServer)
	if cfg.CorpusOptions.LoadOnStartup {
		passages, err := cfg.passages()
		if err != nil {
			return nil, err
		}
		mgr.Add(biz.NewStartupLoad(loader, passages, nil))
	}
	if cfg.CorpusOptions.Watch {
		mgr.Add(biz.NewCorpusWatcher(cfg.CorpusOptions.File, loader, nil))
	}
	s.srv = mgr

	logger.Info("Guidebot service is ready")
	return s, nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.close(context.Background())
	return s.srv.Run(ctx)
}

// close 逆序释放资源。
func (s *Server) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			logger.Warnw("Failed to release resource", "error", err.Error())
		}
	}
	s.closers = nil
}

// newRelay 创建 WhatsApp 转发客户端，按配置包装熔断器。
func (cfg *Config) newRelay() (relay.Relay, error) {
	client, err := whatsapp.New(&whatsapp.Config{
		BaseURL:    cfg.RelayOptions.BaseURL,
		AccountSID: cfg.RelayOptions.AccountSID,
		AuthToken:  cfg.RelayOptions.AuthToken,
		From:       cfg.RelayOptions.From,
		Timeout:    cfg.RelayOptions.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize relay: %w", err)
	}
	if cfg.RelayOptions.BreakerThreshold <= 0 {
		return client, nil
	}
	return relay.WithBreaker(client, resilience.NewBreaker(&resilience.Config{
		Name:        client.Name(),
		MaxFailures: cfg.RelayOptions.BreakerThreshold,
		OpenTimeout: cfg.RelayOptions.BreakerTimeout,
	})), nil
}

func releasePool(p *pool.Pool) func(context.Context) error {
	return func(context.Context) error {
		p.Release()
		return nil
	}
}
