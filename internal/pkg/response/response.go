package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Success writes {"status":"success", ...fields}.
func Success(c *gin.Context, fields gin.H) {
	body := gin.H{"status": StatusSuccess}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error writes {"status":"error","code":code,"message":message}.
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, gin.H{
		"status":  StatusError,
		"code":    code,
		"message": message,
	})
}
