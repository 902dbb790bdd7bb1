package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultTimeout is used when Timeout is given a non-positive duration.
const DefaultTimeout = 30 * time.Second

// Timeout returns a middleware that bounds request processing time.
//
// 超时通过请求上下文传递给下游：嵌入、检索、生成和转发调用都会在截止时间
// 到达后返回错误，由处理器渲染为错误响应。
func Timeout(timeout time.Duration, skipPaths ...string) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
