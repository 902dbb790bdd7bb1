// Package auth provides authentication middleware.
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/pkg/errors"
	"github.com/kart-io/guidebot/pkg/security/auth"
	"github.com/kart-io/guidebot/pkg/utils/response"
)

// Options 认证中间件配置。
type Options struct {
	// TokenLookup 形如 "header:Authorization"、"query:token"、"cookie:jwt"。
	TokenLookup string
	// AuthScheme header 中令牌前缀，默认 "Bearer"。
	AuthScheme string
	// SkipPaths 不需要认证的路径。
	SkipPaths []string
}

// NewOptions 返回默认配置。
func NewOptions() Options {
	return Options{
		TokenLookup: "header:Authorization",
		AuthScheme:  "Bearer",
	}
}

// Auth 返回认证中间件。
//
// 缺少令牌时返回 401 {"error":"Unauthorized"}，校验失败（包括过期）时返回
// 401 {"error":"Invalid token"}，失败原因只写日志。请求在任何下游调用之前被终止。
func Auth(opts Options, authenticator auth.Authenticator) gin.HandlerFunc {
	lookup := parseTokenLookup(opts.TokenLookup)
	skip := make(map[string]bool, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}

		if authenticator == nil {
			response.Fail(c, errors.ErrInternal.WithMessage("authenticator not configured"))
			return
		}

		tokenString := extractToken(c, lookup, opts.AuthScheme)
		if tokenString == "" {
			response.Fail(c, errors.ErrUnauthorized)
			return
		}

		claims, err := authenticator.Verify(c.Request.Context(), tokenString)
		if err != nil {
			logAuthFailure(c, tokenString, err)
			response.Fail(c, errors.ErrInvalidToken)
			return
		}

		logger.Debugw("authentication successful",
			"subject", claims.Subject,
			"path", path,
		)

		c.Request = c.Request.WithContext(auth.InjectAuth(c.Request.Context(), claims, tokenString))
		c.Next()
	}
}

// tokenLookup represents a token extraction method.
type tokenLookup struct {
	source string // "header", "query", "cookie"
	name   string // name of the header/query/cookie
}

// parseTokenLookup parses the token lookup string.
func parseTokenLookup(lookup string) tokenLookup {
	parts := strings.SplitN(lookup, ":", 2)
	if len(parts) != 2 {
		return tokenLookup{source: "header", name: "Authorization"}
	}
	return tokenLookup{source: parts[0], name: parts[1]}
}

// extractToken extracts the token from the request.
func extractToken(c *gin.Context, lookup tokenLookup, scheme string) string {
	var token string

	switch lookup.source {
	case "header":
		token = c.GetHeader(lookup.name)
		if scheme != "" {
			if !strings.HasPrefix(token, scheme+" ") {
				return ""
			}
			token = strings.TrimPrefix(token, scheme+" ")
		}
	case "query":
		token = c.Query(lookup.name)
	case "cookie":
		if cookie, err := c.Request.Cookie(lookup.name); err == nil {
			token = cookie.Value
		}
	}

	// Sanitize token
	token = strings.ReplaceAll(token, " ", "")
	token = strings.ReplaceAll(token, "+", "-")
	token = strings.ReplaceAll(token, "/", "_")
	token = strings.TrimRight(token, "=")
	return token
}

// logAuthFailure logs authentication failures for security audit.
func logAuthFailure(c *gin.Context, token string, err error) {
	req := c.Request
	if req == nil {
		return
	}

	// Only record token prefix to avoid leaking complete token in logs
	tokenPrefix := ""
	if len(token) > 20 {
		tokenPrefix = token[:20] + "..."
	} else if len(token) > 0 {
		tokenPrefix = token[:len(token)/2] + "..."
	}

	logger.Warnw("authentication failed",
		"error", err.Error(),
		"remote_addr", req.RemoteAddr,
		"token_prefix", tokenPrefix,
		"path", req.URL.Path,
		"method", req.Method,
		"user_agent", req.UserAgent(),
	)
}
