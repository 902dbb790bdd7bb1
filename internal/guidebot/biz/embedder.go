package biz

import (
	"context"

	"github.com/kart-io/guidebot/pkg/infra/tracing"
	"github.com/kart-io/guidebot/pkg/llm"
)

// Embedder 把供应商错误统一映射为 ErrEmbeddingUnavailable。
type Embedder struct {
	provider llm.EmbeddingProvider
}

// NewEmbedder 创建 Embedder。
func NewEmbedder(provider llm.EmbeddingProvider) *Embedder {
	return &Embedder{provider: provider}
}

// Embed 生成文本向量。空向量同样视为服务不可用。
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracing.StartSpan(ctx, "embed")
	defer span.End()

	vec, err := e.provider.Embed(ctx, text)
	if err != nil {
		err = ErrEmbeddingUnavailable.WithCause(err)
		tracing.RecordError(ctx, err)
		return nil, err
	}
	if len(vec) == 0 {
		err = ErrEmbeddingUnavailable.WithMessage("embedding service returned an empty vector")
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return vec, nil
}

// Name 返回底层供应商名称。
func (e *Embedder) Name() string {
	return e.provider.Name()
}
