// Package router 注册 guidebot 的 HTTP 路由。
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/internal/guidebot/handler"
	authmw "github.com/kart-io/guidebot/pkg/infra/middleware/auth"
	"github.com/kart-io/guidebot/pkg/security/auth"
)

const (
	// HealthPath 健康检查路径，不需要认证。
	HealthPath = "/healthz"
	// MetricsPath 指标路径，不需要认证。
	MetricsPath = "/metrics"
	// ChatPath 聊天路径。
	ChatPath = "/chat"
)

// Handlers 路由依赖的处理器。
type Handlers struct {
	Chat    *handler.ChatHandler
	Health  *handler.HealthHandler
	Metrics *handler.MetricsHandler
}

// Register 在基础中间件链之后挂载认证并注册路由。
// 基础链（恢复、请求 ID、访问日志、追踪、超时）由 server.NewHTTPServer 安装。
func Register(engine *gin.Engine, h Handlers, authenticator auth.Authenticator) {
	authOpts := authmw.NewOptions()
	authOpts.SkipPaths = []string{HealthPath, MetricsPath}
	engine.Use(authmw.Auth(authOpts, authenticator))

	engine.POST(ChatPath, h.Chat.Chat)
	engine.GET(HealthPath, h.Health.Healthz)
	if h.Metrics != nil {
		engine.GET(MetricsPath, h.Metrics.Metrics)
	}

	logger.Infow("HTTP routes registered", "routes", len(engine.Routes()))
}
