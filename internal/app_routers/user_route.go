package approuters

import (
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/auth"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/configuration"

	"github.com/gin-gonic/gin"
)

func UserRouters(router *gin.Engine, container *configuration.Container) {
	userRoute := router.Group("/lc/api/users")
	userRoute.Use(auth.Middleware(container.AuthService))
	{
		userRoute.GET("/directory", container.UserHandler.GetDirectory)
		userRoute.GET("/:userId", container.UserHandler.GetProfile)
	}
}
