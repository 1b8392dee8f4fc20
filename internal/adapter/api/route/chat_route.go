package route

import (
	"github.com/gin-gonic/gin"

	"github.com/roomops/pms-console/internal/adapter/api/controller"
	"github.com/roomops/pms-console/pkg/auth"
)

// ConfigureChatRoutes registers the conversational surface of the console.
// Every route requires an authenticated staff member.
func ConfigureChatRoutes(router *gin.RouterGroup, chatController *controller.ChatController) {
	chatGroup := router.Group("/chat")
	chatGroup.Use(auth.JWTAuthMiddleware())
	{
		chatGroup.POST("/messages", chatController.ProcessMessage)
		chatGroup.POST("/form", chatController.SubmitForm)
		chatGroup.POST("/candidates", chatController.SelectCandidate)
		chatGroup.POST("/cancel", chatController.CancelPending)
		chatGroup.GET("/history", chatController.GetHistory)
		chatGroup.DELETE("/history", chatController.DeleteHistory)
	}
}
