package store

import (
	"net/http"

	"github.com/kart-io/guidebot/pkg/errors"
)

var (
	// ErrDimensionMismatch 向量为空或维度与库中已有向量不一致。
	ErrDimensionMismatch = errors.NewInternalError(errors.ServiceGuidebot, 1).
		Message("Embedding dimension mismatch", "عدم تطابق أبعاد المتجه").
		MustBuild()

	// ErrStoreUnavailable 底层存储不可用。
	ErrStoreUnavailable = errors.NewDatabaseError(errors.ServiceGuidebot, 1).
		HTTP(http.StatusServiceUnavailable).
		Message("Guide store unavailable", "مخزن الأدلة غير متاح").
		MustBuild()
)
