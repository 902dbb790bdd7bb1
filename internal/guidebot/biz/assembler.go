package biz

import (
	"context"
	"strings"

	"github.com/kart-io/guidebot/internal/guidebot/store"
	"github.com/kart-io/guidebot/pkg/errors"
	"github.com/kart-io/guidebot/pkg/infra/tracing"
	"github.com/kart-io/guidebot/pkg/llm"
)

// AssembledContext 检索结果。Text 为命中语料按相似度降序以换行拼接。
type AssembledContext struct {
	Text    string
	Entries []store.ScoredEntry
}

// ContextAssembler 为查询检索相关语料。
type ContextAssembler struct {
	embedder *Embedder
	store    store.GuideStore
	topK     int
}

// NewContextAssembler 创建 ContextAssembler。
func NewContextAssembler(provider llm.EmbeddingProvider, s store.GuideStore, topK int) *ContextAssembler {
	return &ContextAssembler{
		embedder: NewEmbedder(provider),
		store:    s,
		topK:     topK,
	}
}

// BuildContext 嵌入查询并取 topK 条语料。没有命中时返回空上下文。
func (a *ContextAssembler) BuildContext(ctx context.Context, query string) (*AssembledContext, error) {
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "retrieve")
	defer span.End()

	entries, err := a.store.TopK(ctx, vec, a.topK)
	if err != nil {
		if !errors.Is(err, ErrDimensionMismatch) && !errors.Is(err, ErrStoreUnavailable) {
			err = ErrStoreUnavailable.WithCause(err)
		}
		tracing.RecordError(ctx, err)
		return nil, err
	}

	contents := make([]string, len(entries))
	for i, e := range entries {
		contents[i] = e.Content
	}

	return &AssembledContext{
		Text:    strings.Join(contents, "\n"),
		Entries: entries,
	}, nil
}
