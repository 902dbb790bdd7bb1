package biz

import (
	"github.com/kart-io/guidebot/internal/guidebot/store"
	"github.com/kart-io/guidebot/pkg/errors"
)

func init() {
	errors.RegisterService(errors.ServiceGuidebot, "guidebot")
}

var (
	// ErrInvalidRequest 查询为空。
	ErrInvalidRequest = errors.NewRequestError(errors.ServiceGuidebot, 1).
		Message("Query is required", "الاستعلام مطلوب").
		MustBuild()

	// ErrEmbeddingUnavailable 嵌入服务调用失败或返回无效结果。
	ErrEmbeddingUnavailable = errors.NewNetworkError(errors.ServiceGuidebot, 1).
		Message("Embedding service unavailable", "خدمة التضمين غير متاحة").
		MustBuild()

	// ErrGenerationUnavailable 生成服务调用失败或返回空回答。
	ErrGenerationUnavailable = errors.NewNetworkError(errors.ServiceGuidebot, 2).
		Message("Generation service unavailable", "خدمة التوليد غير متاحة").
		MustBuild()

	// ErrRelayFailed 消息转发失败，只记录日志，不影响请求结果。
	ErrRelayFailed = errors.NewNetworkError(errors.ServiceGuidebot, 3).
		Message("Relay failed", "فشل إرسال الرسالة").
		MustBuild()

	// ErrCorpusLoadFailed 部分语料加载失败。
	ErrCorpusLoadFailed = errors.NewInternalError(errors.ServiceGuidebot, 2).
		Message("Corpus load failed", "فشل تحميل المحتوى").
		MustBuild()

	// ErrDimensionMismatch 见 store.ErrDimensionMismatch。
	ErrDimensionMismatch = store.ErrDimensionMismatch

	// ErrStoreUnavailable 见 store.ErrStoreUnavailable。
	ErrStoreUnavailable = store.ErrStoreUnavailable
)
