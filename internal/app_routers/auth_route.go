package approuters

import (
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/auth"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/configuration"

	"github.com/gin-gonic/gin"
)

func AuthRouters(router *gin.Engine, container *configuration.Container) {
	authRoute := router.Group("/lc/api/auth")
	{
		authRoute.POST("/signup", container.AuthHandler.SignUp)
		authRoute.POST("/signin", container.AuthHandler.SignIn)
		authRoute.POST("/reset-password", container.AuthHandler.RequestPasswordReset)
		authRoute.POST("/reset-password/complete", container.AuthHandler.CompletePasswordReset)
	}

	protected := router.Group("/lc/api/auth")
	protected.Use(auth.Middleware(container.AuthService))
	{
		protected.POST("/signout", container.AuthHandler.SignOut)
	}
}
