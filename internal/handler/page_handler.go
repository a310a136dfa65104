package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/xxxsen/artgan/internal/conditioning"
	"github.com/xxxsen/artgan/internal/generator"
	"github.com/xxxsen/artgan/internal/page"
	"github.com/xxxsen/artgan/internal/service"
)

type PageHandler struct {
	art       *service.ArtService
	templator *page.Templator
}

func NewPageHandler(art *service.ArtService, templator *page.Templator) *PageHandler {
	return &PageHandler{art: art, templator: templator}
}

func (h *PageHandler) Index(c *gin.Context) {
	html, err := h.templator.Index(c.Request.Context(), page.IndexParams{
		Artists:       conditioning.Artists(),
		Genres:        conditioning.Genres(),
		Styles:        conditioning.Styles(),
		DefaultArtist: string(conditioning.ArtistMonet),
		DefaultGenre:  string(conditioning.GenreLandscape),
		DefaultStyle:  string(conditioning.StyleImpressionism),
		MaxSeed:       generator.MaxSeed,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (h *PageHandler) History(c *gin.Context) {
	keys, err := h.art.History(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	store := h.art.Store()
	html, err := h.templator.History(c.Request.Context(), page.HistoryParams{
		Images: lo.Map(keys, func(key string, _ int) page.HistoryImage {
			return page.HistoryImage{Key: key, URL: store.URL(key)}
		}),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (h *PageHandler) MainJS(c *gin.Context) {
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", page.MainJS())
}
