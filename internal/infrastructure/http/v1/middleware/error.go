package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Internal causes are logged and never reach the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, c.Errors.Last().Err)
	}
}

// writeError renders err as {code, message, details}.
func writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		logger.Error(ctx, "unhandled error", "error", err)
		appErr = apperror.NewInternal(err)
	}

	if appErr.Code == apperror.CodeInternal {
		if ok {
			logger.Error(ctx, "internal error", "cause", appErr.Err)
		}
		// internal details stay in the log
		body := gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{"request_id": appctx.GetRequestID(ctx)},
		}
		respond(c, http.StatusInternalServerError, body)
		return
	}

	if appErr.Err != nil {
		logger.Warn(ctx, "request failed", "code", appErr.Code, "cause", appErr.Err)
	}
	respond(c, appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	})
}

func respond(c *gin.Context, status int, body gin.H) {
	FailIdempotency(c, status, body)
	c.AbortWithStatusJSON(status, body)
}
