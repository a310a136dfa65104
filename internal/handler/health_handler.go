package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/artgan/internal/network"
)

type HealthHandler struct {
	net network.Network
}

func NewHealthHandler(net network.Network) *HealthHandler {
	return &HealthHandler{net: net}
}

func (h *HealthHandler) Health(c *gin.Context) {
	info := h.net.Info()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": h.net.Name(),
		"network": gin.H{
			"z_dim":      info.ZDim,
			"c_dim":      info.CDim,
			"resolution": info.Resolution,
		},
	})
}
