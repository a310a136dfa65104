package middleware

import (
	"fmt"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/artgan/internal/pkg/errcode"
	"github.com/xxxsen/artgan/internal/pkg/response"
)

const sentryFlushTimeout = 2 * time.Second

// Sentry attaches a hub to every request. Without sentry.Init the hub has
// no client and captures are dropped.
func Sentry() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	})
}

// Recover turns a panic into a 500 failure payload. Register it before
// Sentry: the Sentry middleware reports the panic and re-raises it here.
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logutil.GetLogger(c.Request.Context()).Error("panic recovered",
				zap.String("request_id", GetRequestID(c)),
				zap.String("path", c.Request.URL.Path),
				zap.String("panic", fmt.Sprint(rec)),
				zap.Stack("stack"),
			)
			if !c.Writer.Written() {
				response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
			}
			c.Abort()
		}()
		c.Next()
	}
}

// NotFound answers unmatched routes with a JSON failure payload instead of
// gin's plain text body.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Written() || c.Writer.Status() != http.StatusNotFound || c.FullPath() != "" {
			return
		}
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	}
}
