package router

import (
	"github.com/gin-gonic/gin"

	"wayfarer.app/concierge/internal/http/handler"
	"wayfarer.app/concierge/internal/memory"
)

func SetupRoutes(router *gin.Engine, pipeline handler.ChatPipeline, store memory.Store) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		chatHandler := handler.NewChatHandler(pipeline, store)
		ChatRouter(v1, chatHandler)
	}
}
