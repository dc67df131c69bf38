package router

import (
	"github.com/gin-gonic/gin"

	"wayfarer.app/concierge/internal/http/handler"
)

func ChatRouter(router *gin.RouterGroup, handler *handler.ChatHandler) {
	router.POST("/chat", handler.Chat)
	router.POST("/onboarding", handler.Onboard)
	router.GET("/preferences", handler.Preferences)
}
