package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	logctx "github.com/kart-io/guidebot/pkg/infra/logger"
)

// Logger returns a middleware that writes one structured access log per request.
// Paths in skipPaths (for example /healthz) are not logged.
//
// 请求体从不写入日志，查询内容只以密文形式出现在审计记录中。
func Logger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"remote_addr", c.ClientIP(),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		// request_id、trace_id 由上下文字段带出
		log := logctx.GetLogger(c.Request.Context())
		if c.Writer.Status() >= 500 {
			log.Warnw("HTTP Request", fields...)
			return
		}
		log.Infow("HTTP Request", fields...)
	}
}
