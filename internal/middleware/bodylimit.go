package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/artgan/internal/pkg/errcode"
	"github.com/xxxsen/artgan/internal/pkg/response"
)

// BodyLimit rejects declared bodies over limit with the usual failure
// payload and caps the rest with http.MaxBytesReader, so reads past limit
// fail with *http.MaxBytesError.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			response.Error(c, http.StatusInternalServerError, errcode.ErrBodyTooLarge, "request body too large")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
