// Package response renders API error bodies.
//
// Errors are written as {"error": message}. Client errors (4xx) carry the
// Errno message; every server error (5xx) collapses to the generic
// "Internal server error" body so provider details never reach the caller.
// Arabic messages are used when the request's Accept-Language starts with "ar".
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/guidebot/pkg/errors"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// Err creates the English error body for an Errno.
func Err(e *errors.Errno) ErrorBody {
	return ErrWithLang(e, "en")
}

// ErrWithLang creates the error body with a language-specific message.
func ErrWithLang(e *errors.Errno, lang string) ErrorBody {
	if e == nil || e.HTTPStatus() >= http.StatusInternalServerError {
		return ErrorBody{Error: errors.ErrInternal.Message(lang)}
	}
	return ErrorBody{Error: e.Message(lang)}
}

// Fail aborts the request with the status and body derived from err.
// Errors that are not an Errno are treated as internal errors.
func Fail(c *gin.Context, err error) {
	errno := errors.FromError(err)
	c.AbortWithStatusJSON(errno.HTTPStatus(), ErrWithLang(errno, requestLang(c)))
}

func requestLang(c *gin.Context) string {
	if c.Request == nil {
		return ""
	}
	return c.GetHeader("Accept-Language")
}

// OK writes a 200 JSON response.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}
