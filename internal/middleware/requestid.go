package middleware

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	ContextRequestIDKey = "request_id"
	HeaderRequestID     = "X-Request-Id"
)

// RequestID tags each request with an id (reusing a well formed inbound
// X-Request-Id) and logs its completion. Register it after Sentry so the
// id lands on the request hub.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("request_id", requestID)
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		logger := logutil.GetLogger(c.Request.Context()).With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed with server error")
		case status >= http.StatusBadRequest:
			logger.Warn("request failed with client error")
		default:
			logger.Info("request completed")
		}
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextRequestIDKey)
}
