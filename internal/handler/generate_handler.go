package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/artgan/internal/conditioning"
	"github.com/xxxsen/artgan/internal/generator"
	appErr "github.com/xxxsen/artgan/internal/pkg/errors"
	"github.com/xxxsen/artgan/internal/pkg/response"
	"github.com/xxxsen/artgan/internal/service"
)

const defaultTruncation = 1.0

type GenerateRequest struct {
	Artist     *string  `json:"artist"`
	Genre      *string  `json:"genre"`
	Style      *string  `json:"style"`
	Seed       *int64   `json:"seed"`
	Truncation *float64 `json:"truncation"`
}

type GenerateHandler struct {
	art *service.ArtService
}

func NewGenerateHandler(art *service.ArtService) *GenerateHandler {
	return &GenerateHandler{art: art}
}

func (h *GenerateHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(c, err)
			return
		}
		handleError(c, fmt.Errorf("%w: malformed request body: %s", appErr.ErrInvalid, err.Error()))
		return
	}
	genReq, err := req.toGeneratorRequest()
	if err != nil {
		handleError(c, err)
		return
	}
	logutil.GetLogger(c.Request.Context()).Info("generate request",
		zap.String("artist", string(genReq.Labels.Artist)),
		zap.String("genre", string(genReq.Labels.Genre)),
		zap.String("style", string(genReq.Labels.Style)),
		zap.Bool("seed_given", genReq.Seed != nil),
		zap.Float64("truncation", genReq.Truncation),
	)
	res, err := h.art.Generate(c.Request.Context(), genReq)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"image_url": res.ImageURL,
		"seed":      res.Seed,
	})
}

func (h *GenerateHandler) History(c *gin.Context) {
	keys, err := h.art.History(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"images": keys})
}

func (r GenerateRequest) toGeneratorRequest() (generator.Request, error) {
	labels, err := conditioning.ParseLabels(
		valueOr(r.Artist, string(conditioning.ArtistMonet)),
		valueOr(r.Genre, string(conditioning.GenreLandscape)),
		valueOr(r.Style, string(conditioning.StyleImpressionism)),
	)
	if err != nil {
		return generator.Request{}, err
	}
	out := generator.Request{
		Labels:     labels,
		Truncation: valueOr(r.Truncation, defaultTruncation),
	}
	if r.Seed != nil {
		if *r.Seed < 0 || *r.Seed > generator.MaxSeed {
			return generator.Request{}, fmt.Errorf("%w: seed must be within [0, %d]", appErr.ErrInvalid, uint32(generator.MaxSeed))
		}
		seed := uint32(*r.Seed)
		out.Seed = &seed
	}
	return out, nil
}

func valueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
