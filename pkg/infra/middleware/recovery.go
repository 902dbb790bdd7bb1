package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/pkg/errors"
	"github.com/kart-io/guidebot/pkg/utils/response"
)

// Recovery returns a middleware that recovers from panics.
//
// 完整堆栈只写入日志，客户端始终收到通用的 500 响应体。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", fmt.Sprintf("%v", r),
					"stack_trace", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"request_id", GetRequestID(c.Request.Context()),
				)
				response.Fail(c, errors.ErrPanic)
			}
		}()
		c.Next()
	}
}
