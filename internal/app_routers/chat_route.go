package approuters

import (
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/auth"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/lc/api/chat")
	chatRoute.Use(auth.Middleware(container.AuthService))
	{
		chatRoute.POST("/messages", container.ChatHandler.SendMessage)
		chatRoute.POST("/messages/forward", container.ChatHandler.ForwardMessage)
		chatRoute.DELETE("/conversations/:conversationId/messages/:messageId", container.ChatHandler.DeleteMessage)
		chatRoute.POST("/messages/read", container.ChatHandler.MarkRead)
		chatRoute.POST("/typing", container.ChatHandler.SetTyping)
		chatRoute.GET("/messages/:userId", container.ChatHandler.GetMessages)
		chatRoute.GET("/conversations", container.ChatHandler.GetConversations)
	}
}
