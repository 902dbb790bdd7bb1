package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
)

// GuideCounter 返回语料条数，store.GuideStore 满足该接口。
type GuideCounter interface {
	Count(ctx context.Context) (int, error)
}

// HealthResponse GET /healthz 响应体。
type HealthResponse struct {
	Status string `json:"status"`
	Guides int    `json:"guides"`
}

// HealthHandler 健康检查。
type HealthHandler struct {
	store GuideCounter
}

// NewHealthHandler 创建 HealthHandler。
func NewHealthHandler(store GuideCounter) *HealthHandler {
	return &HealthHandler{store: store}
}

// Healthz 存储可达时返回 200，否则返回 503。
func (h *HealthHandler) Healthz(c *gin.Context) {
	n, err := h.store.Count(c.Request.Context())
	if err != nil {
		logger.Warnw("Health check failed", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Guides: n})
}
