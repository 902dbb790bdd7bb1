package response

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/guidebot/pkg/errors"
	"github.com/kart-io/guidebot/pkg/utils/json"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErr(t *testing.T) {
	tests := []struct {
		name string
		in   *errors.Errno
		want string
	}{
		{"client error keeps message", errors.ErrBadRequest.WithMessage("Query is required"), "Query is required"},
		{"auth error", errors.ErrInvalidToken, "Invalid token"},
		{"server error is generic", errors.ErrServiceUnavailable.WithMessage("upstream 502: secret body"), "Internal server error"},
		{"nil", nil, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Err(tt.in).Error)
		})
	}
}

func TestErrWithLang(t *testing.T) {
	assert.Equal(t, "رمز غير صالح", ErrWithLang(errors.ErrInvalidToken, "ar-SA").Error)
	assert.Equal(t, "خطأ داخلي في الخادم", ErrWithLang(errors.ErrDatabase, "ar").Error)
}

func TestFail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, stderrors.New("plain failure"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.True(t, c.IsAborted())
}

func TestFail_Errno(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, errors.ErrUnauthorized)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestFail_AcceptLanguage(t *testing.T) {
	tests := []struct {
		name   string
		lang   string
		err    error
		status int
		want   string
	}{
		{"arabic client error", "ar-SA,ar;q=0.9,en;q=0.5", errors.ErrUnauthorized, http.StatusUnauthorized, "غير مصرح"},
		{"arabic server error", "ar", errors.ErrDatabase, http.StatusInternalServerError, "خطأ داخلي في الخادم"},
		{"english", "en-US", errors.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{"no header", "", errors.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/chat", nil)
			if tt.lang != "" {
				c.Request.Header.Set("Accept-Language", tt.lang)
			}

			Fail(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Error)
		})
	}
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, gin.H{"response": "hello"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"hello"}`, w.Body.String())
}
