package handler

import (
	"net/http"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/auth"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler interface {
	GetDirectory(c *gin.Context)
	GetProfile(c *gin.Context)
}

type userHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) UserHandler {
	return &userHandler{
		service: service,
	}
}

func (h *userHandler) GetDirectory(c *gin.Context) {
	query := c.Query("q")

	users, err := h.service.Directory(c.Request.Context(), auth.CallerID(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}

func (h *userHandler) GetProfile(c *gin.Context) {
	userID := c.Param("userId")

	profile, err := h.service.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": profile,
	})
}
