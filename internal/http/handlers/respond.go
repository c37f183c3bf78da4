package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/http/middlewares"
)

// ErrorBody is the failure envelope shared by every route.
type ErrorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, ErrorBody{
		Success:   false,
		Error:     message,
		Code:      code,
		RequestID: requestIDFrom(ctx),
		Details:   details,
	})
}

// RespondErr is the single translation point from a service error to a
// response. Causes of server errors go to the log, never to the client.
func RespondErr(ctx *gin.Context, err error) {
	status := apperr.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		slog.Default().ErrorContext(ctx.Request.Context(), "request_failed",
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
			"err", err,
		)
	}

	RespondError(ctx, status, apperr.Code(err), apperr.PublicMessage(err), nil)
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, apperr.CodeValidation, message, details)
}

func RespondOK(ctx *gin.Context, status int, data any) {
	ctx.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// RespondSession answers an authenticating call with the token in the body.
// data may be nil.
func RespondSession(ctx *gin.Context, status int, data any, token string) {
	body := gin.H{
		"success": true,
		"token":   token,
	}
	if data != nil {
		body["data"] = data
	}
	ctx.JSON(status, body)
}
