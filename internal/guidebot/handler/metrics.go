package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/guidebot/internal/guidebot/metrics"
	"github.com/kart-io/guidebot/pkg/infra/pool"
)

// PoolStatser 工作池统计接口。
type PoolStatser interface {
	Name() string
	Stats() pool.Stats
}

// MetricsResponse GET /metrics 响应体。
type MetricsResponse struct {
	Service metrics.Snapshot      `json:"service"`
	Pools   map[string]pool.Stats `json:"pools,omitempty"`
}

// MetricsHandler 输出业务指标与工作池统计。
type MetricsHandler struct {
	metrics *metrics.Metrics
	pools   []PoolStatser
}

// NewMetricsHandler 创建 MetricsHandler。
func NewMetricsHandler(m *metrics.Metrics, pools ...PoolStatser) *MetricsHandler {
	return &MetricsHandler{metrics: m, pools: pools}
}

// Metrics 处理 GET /metrics。
func (h *MetricsHandler) Metrics(c *gin.Context) {
	resp := MetricsResponse{Service: h.metrics.Snapshot()}
	if len(h.pools) > 0 {
		resp.Pools = make(map[string]pool.Stats, len(h.pools))
		for _, p := range h.pools {
			resp.Pools[p.Name()] = p.Stats()
		}
	}
	c.JSON(http.StatusOK, resp)
}
