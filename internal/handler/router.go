package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Pages    *PageHandler
	Generate *GenerateHandler
	Files    *FileHandler
	Health   *HealthHandler
}

func RegisterRoutes(group *gin.RouterGroup, deps RouterDeps) {
	group.GET("/", deps.Pages.Index)
	group.GET("/history", deps.Pages.History)
	group.GET("/static/js/main.js", deps.Pages.MainJS)

	group.POST("/generate", deps.Generate.Generate)
	group.GET("/api/history", deps.Generate.History)

	group.GET("/static/uploads/:key", deps.Files.Get)
	group.GET("/healthz", deps.Health.Health)
}
