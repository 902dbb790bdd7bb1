package biz

import (
	"context"
	"strings"

	"github.com/kart-io/guidebot/pkg/infra/tracing"
	"github.com/kart-io/guidebot/pkg/llm"
)

// BuildPrompt 构造发送给生成服务的提示。
func BuildPrompt(contextText, query string) string {
	return "Context: " + contextText +
		"\n\nUser Query: " + query +
		"\n\nProvide a concise and accurate response in the same language as the query."
}

// ResponseGenerator 根据上下文与查询生成回答。
type ResponseGenerator struct {
	provider llm.GenerationProvider
}

// NewResponseGenerator 创建 ResponseGenerator。
func NewResponseGenerator(provider llm.GenerationProvider) *ResponseGenerator {
	return &ResponseGenerator{provider: provider}
}

// Generate 调用生成服务。失败或回答为空时返回 ErrGenerationUnavailable。
func (g *ResponseGenerator) Generate(ctx context.Context, contextText, query string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "generate")
	defer span.End()

	answer, err := g.provider.Generate(ctx, BuildPrompt(contextText, query))
	if err != nil {
		err = ErrGenerationUnavailable.WithCause(err)
		tracing.RecordError(ctx, err)
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		err = ErrGenerationUnavailable.WithMessage("generation service returned an empty response")
		tracing.RecordError(ctx, err)
		return "", err
	}
	return answer, nil
}
