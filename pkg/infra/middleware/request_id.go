// Package middleware provides the gin middleware chain of the guidebot HTTP server.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	logctx "github.com/kart-io/guidebot/pkg/infra/logger"
)

// HeaderXRequestID is the header name for request ID.
const HeaderXRequestID = "X-Request-ID"

// maxRequestIDLength 限制客户端传入的请求 ID 长度。
const maxRequestIDLength = 128

type requestIDKey struct{}

// WithRequestID stores the request ID in the context and adds it to the
// context logger fields.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return logctx.WithRequestID(context.WithValue(ctx, requestIDKey{}, requestID), requestID)
}

// GetRequestID returns the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID returns a middleware that adds a unique request ID to each request.
// 已有的 X-Request-ID 会被沿用，否则生成新的 UUID。
// 请求 ID 同时写入响应头和请求上下文。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		c.Header(HeaderXRequestID, requestID)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}
