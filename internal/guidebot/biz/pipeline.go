package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/pkg/errors"
	"github.com/kart-io/guidebot/pkg/infra/tracing"
	"github.com/kart-io/guidebot/pkg/relay"
	"github.com/kart-io/guidebot/pkg/security/auth"
	"github.com/kart-io/guidebot/pkg/security/redact"
)

const (
	defaultRelayTimeout = 10 * time.Second
	defaultRelayWait    = 15 * time.Second
)

// QueryRequest 一次用户查询。Identity 为已校验的调用方声明，可以为 nil。
type QueryRequest struct {
	Query       string
	ViaWhatsApp bool
	Identity    *auth.Claims
}

// QueryResult 查询结果。
type QueryResult struct {
	Response string
	// RecordID 审计记录 ID，可与日志中的密文对应。
	RecordID string
	// Relayed 回答是否已成功转发。
	Relayed bool
}

// Sealer 审计加密接口，redact.Sealer 满足该接口。
type Sealer interface {
	Seal(plaintext []byte) (*redact.Record, error)
}

// QueryPipeline 串联校验、审计、检索、生成与转发。
type QueryPipeline struct {
	assembler *ContextAssembler
	generator *ResponseGenerator
	sealer    Sealer

	relay        relay.Relay
	relayPool    RelaySubmitter
	relayFrom    string
	relayTimeout time.Duration
	relayWait    time.Duration

	log     Logger
	metrics *metrics.Metrics
}

// PipelineOption 配置 QueryPipeline。
type PipelineOption func(*QueryPipeline)

// RelaySubmitter 转发任务提交接口，pool.Pool 满足该接口。
// 请求上下文已取消时不再排队。
type RelaySubmitter interface {
	SubmitWithContext(ctx context.Context, task func()) error
}

// WithRelay 设置消息转发。pool 为空时转发失败。
func WithRelay(r relay.Relay, pool RelaySubmitter, from string) PipelineOption {
	return func(p *QueryPipeline) {
		p.relay = r
		p.relayPool = pool
		p.relayFrom = from
	}
}

// WithRelayTimeout 设置单次转发超时与管道等待上限。
func WithRelayTimeout(timeout, wait time.Duration) PipelineOption {
	return func(p *QueryPipeline) {
		if timeout > 0 {
			p.relayTimeout = timeout
		}
		if wait > 0 {
			p.relayWait = wait
		}
	}
}

// WithPipelineLogger 设置日志。
func WithPipelineLogger(log Logger) PipelineOption {
	return func(p *QueryPipeline) { p.log = orGlobal(log) }
}

// WithPipelineMetrics 设置指标收集。
func WithPipelineMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *QueryPipeline) { p.metrics = m }
}

// NewQueryPipeline 创建查询管道。
func NewQueryPipeline(assembler *ContextAssembler, generator *ResponseGenerator, sealer Sealer, opts ...PipelineOption) *QueryPipeline {
	p := &QueryPipeline{
		assembler:    assembler,
		generator:    generator,
		sealer:       sealer,
		relayTimeout: defaultRelayTimeout,
		relayWait:    defaultRelayWait,
		log:          globalLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer 处理一次查询。转发失败只记录日志，不影响返回结果。
func (p *QueryPipeline) Answer(ctx context.Context, req QueryRequest) (result *QueryResult, err error) {
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordQuery(err)
		}
	}()

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrInvalidRequest
	}

	rec, err := p.sealer.Seal([]byte(req.Query))
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	p.log.Infow("Query received", append(rec.Fields(),
		"subject", subjectOf(req.Identity),
		"via_whatsapp", req.ViaWhatsApp,
	)...)

	start := time.Now()
	assembled, err := p.assembler.BuildContext(ctx, req.Query)
	if err != nil {
		p.logFailure(rec.ID, "retrieve", err)
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordRetrieval(time.Since(start))
	}

	start = time.Now()
	answer, err := p.generator.Generate(ctx, assembled.Text, req.Query)
	if err != nil {
		p.logFailure(rec.ID, "generate", err)
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordGeneration(time.Since(start))
	}

	result = &QueryResult{Response: answer, RecordID: rec.ID}

	if req.ViaWhatsApp {
		relayErr := p.dispatch(ctx, req.Identity, answer)
		if p.metrics != nil {
			p.metrics.RecordRelay(relayErr)
		}
		if relayErr != nil {
			p.log.Warnw("Relay failed",
				"record_id", rec.ID,
				"subject", subjectOf(req.Identity),
				"error", relayErr.Error(),
			)
		} else {
			result.Relayed = true
		}
	}

	return result, nil
}

// dispatch 在转发池上发送回答，并在 relayWait 内等待结果。
// 发送使用独立的超时上下文，请求结束后仍会在超时内完成。
func (p *QueryPipeline) dispatch(ctx context.Context, identity *auth.Claims, body string) error {
	ctx, span := tracing.StartSpan(ctx, "relay")
	defer span.End()

	err := p.send(ctx, identity, body)
	tracing.RecordError(ctx, err)
	return err
}

func (p *QueryPipeline) send(ctx context.Context, identity *auth.Claims, body string) error {
	if p.relay == nil || p.relayPool == nil {
		return ErrRelayFailed.WithMessage("relay is not configured")
	}
	if identity == nil || strings.TrimSpace(identity.PhoneNumber) == "" {
		return ErrRelayFailed.WithCause(relay.ErrNoDestination)
	}

	msg := relay.Message{
		From: p.relayFrom,
		To:   identity.PhoneNumber,
		Body: body,
	}

	done := make(chan error, 1)
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.relayTimeout)
	if err := p.relayPool.SubmitWithContext(ctx, func() {
		defer cancel()
		done <- p.relay.Send(sendCtx, msg)
	}); err != nil {
		cancel()
		return ErrRelayFailed.WithCause(err)
	}

	timer := time.NewTimer(p.relayWait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return ErrRelayFailed.WithCause(err)
		}
		return nil
	case <-timer.C:
		return ErrRelayFailed.WithMessage("relay did not complete in time")
	case <-ctx.Done():
		return ErrRelayFailed.WithCause(ctx.Err())
	}
}

func (p *QueryPipeline) logFailure(recordID, stage string, err error) {
	p.log.Errorw("Query failed",
		"record_id", recordID,
		"stage", stage,
		"error", err.Error(),
	)
}

func subjectOf(claims *auth.Claims) string {
	if claims == nil {
		return ""
	}
	return claims.Subject
}
