package handler

import (
	"errors"
	"net/http"
	"strconv"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/artgan/internal/conditioning"
	"github.com/xxxsen/artgan/internal/filestore"
	"github.com/xxxsen/artgan/internal/generator"
	"github.com/xxxsen/artgan/internal/middleware"
	appErr "github.com/xxxsen/artgan/internal/pkg/errors"
	"github.com/xxxsen/artgan/internal/pkg/errcode"
	"github.com/xxxsen/artgan/internal/pkg/response"
	"github.com/xxxsen/artgan/internal/service"
)

// failure is how one request error is reported. Every failed generation
// answers 500; code tells the kinds apart.
type failure struct {
	status  int
	code    int
	message string
	// caller mistakes are logged as warnings and kept out of Sentry
	rejected bool
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	f := classifyError(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("code", f.code),
		zap.Error(err),
	)
	if f.rejected {
		logger.Warn("request rejected")
	} else {
		logger.Error("request failed")
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	response.Error(c, f.status, f.code, f.message)
}

func classifyError(err error) failure {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return failure{http.StatusInternalServerError, errcode.ErrBodyTooLarge,
			"request body exceeds " + formatBodyLimit(tooLarge.Limit), true}
	case errors.Is(err, conditioning.ErrUnknownLabel):
		return failure{http.StatusInternalServerError, errcode.ErrUnknownLabel, err.Error(), true}
	case appErr.IsInvalid(err):
		return failure{http.StatusInternalServerError, errcode.ErrInvalid, err.Error(), true}
	case appErr.IsNotFound(err), errors.Is(err, filestore.ErrInvalidKey):
		return failure{http.StatusNotFound, errcode.ErrNotFound, "not found", true}
	case errors.Is(err, generator.ErrGeneration):
		return failure{http.StatusInternalServerError, errcode.ErrGeneration, err.Error(), false}
	case errors.Is(err, service.ErrPersist):
		return failure{http.StatusInternalServerError, errcode.ErrPersist, err.Error(), false}
	default:
		return failure{http.StatusInternalServerError, errcode.ErrInternal, "internal error", false}
	}
}

func formatBodyLimit(limit int64) string {
	const mb = 1024 * 1024
	if limit < mb {
		return strconv.FormatInt(limit, 10) + " bytes"
	}
	return strconv.FormatInt(limit/mb, 10) + "MB"
}
