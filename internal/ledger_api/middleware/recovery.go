package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

type recoveredError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// recoveredResponse has the same shape as the handlers' error envelope so
// clients decode a panic like any other failure.
type recoveredResponse struct {
	Error         recoveredError `json:"error"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// Recovery turns a panic in a handler into a 500 envelope carrying the request's
// correlation id. A panic that happens after the handler has written its status
// is logged only; a second body would corrupt the response.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			correlationID := GetCorrelationID(c)
			logger.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"route", c.FullPath(),
				"method", c.Request.Method,
				"correlation_id", correlationID,
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, recoveredResponse{
				Error: recoveredError{
					Code:    "INTERNAL_SERVER_ERROR",
					Message: "An internal server error occurred",
				},
				CorrelationID: correlationID,
			})
		}()

		c.Next()
	}
}
