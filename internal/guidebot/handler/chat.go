// Package handler 提供 guidebot 的 HTTP 处理器。
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/guidebot/internal/guidebot/biz"
	"github.com/kart-io/guidebot/pkg/errors"
	logctx "github.com/kart-io/guidebot/pkg/infra/logger"
	"github.com/kart-io/guidebot/pkg/security/auth"
	"github.com/kart-io/guidebot/pkg/utils/json"
	"github.com/kart-io/guidebot/pkg/utils/response"
	"github.com/kart-io/guidebot/pkg/utils/validator"
)

// Answerer 查询处理接口，biz.QueryPipeline 满足该接口。
type Answerer interface {
	Answer(ctx context.Context, req biz.QueryRequest) (*biz.QueryResult, error)
}

// ChatRequest POST /chat 请求体。
type ChatRequest struct {
	Query       string `json:"query" validate:"notblank"`
	ViaWhatsApp bool   `json:"viaWhatsApp"`
}

// ChatResponse POST /chat 响应体。
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatHandler 处理聊天请求。
type ChatHandler struct {
	pipeline Answerer
}

// NewChatHandler 创建 ChatHandler。
func NewChatHandler(pipeline Answerer) *ChatHandler {
	return &ChatHandler{pipeline: pipeline}
}

// Chat 处理 POST /chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	body, err := c.GetRawData()
	if err != nil {
		response.Fail(c, errors.ErrBadRequest.WithCause(err))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			response.Fail(c, errors.ErrBadRequest.WithCause(err))
			return
		}
	}
	if errs := validator.StructWithLang(req, validator.LangEN); errs != nil {
		response.Fail(c, biz.ErrInvalidRequest.WithCause(errs))
		return
	}

	ctx := c.Request.Context()
	result, err := h.pipeline.Answer(ctx, biz.QueryRequest{
		Query:       req.Query,
		ViaWhatsApp: req.ViaWhatsApp,
		Identity:    auth.ClaimsFromContext(ctx),
	})
	if err != nil {
		errno := errors.FromError(err)
		if errno.HTTPStatus() >= http.StatusInternalServerError {
			logctx.GetLogger(ctx).Errorw("Chat request failed",
				"code", errno.Code,
				"error", err.Error(),
			)
		}
		response.Fail(c, errno)
		return
	}

	response.OK(c, ChatResponse{Response: result.Response})
}
