package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/geocoder89/devcamper/internal/apperr"
)

func requestID(c *gin.Context) string {
	if v, ok := c.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return c.GetHeader(requestIDHeader)
}

// abortWith writes the failure envelope and stops the chain.
func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"error":     message,
		"code":      code,
		"requestId": requestID(c),
	})
}

func abortErr(c *gin.Context, err error) {
	abortWith(c, apperr.HTTPStatus(err), apperr.Code(err), apperr.PublicMessage(err))
}
