package handler

import (
	"net/http"
	"strconv"

	"github.com/krrishamadhavtech-bit/LiveChatting/internal/auth"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/model"
	"github.com/krrishamadhavtech-bit/LiveChatting/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler interface {
	SendMessage(c *gin.Context)
	ForwardMessage(c *gin.Context)
	DeleteMessage(c *gin.Context)
	MarkRead(c *gin.Context)
	SetTyping(c *gin.Context)
	GetMessages(c *gin.Context)
	GetConversations(c *gin.Context)
}

type chatHandler struct {
	service service.ChatService
}

func NewChatHandler(service service.ChatService) ChatHandler {
	return &chatHandler{
		service: service,
	}
}

type sendMessageRequest struct {
	ToUserID string               `json:"toUserId" binding:"required"`
	Text     string               `json:"text"`
	ReplyTo  *model.ReplySnapshot `json:"replyTo,omitempty"`
}

func (h *chatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), auth.CallerID(c), req.ToUserID, req.Text, req.ReplyTo)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msg,
	})
}

type forwardMessageRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	MessageID      string `json:"messageId" binding:"required"`
	ToUserID       string `json:"toUserId" binding:"required"`
}

func (h *chatHandler) ForwardMessage(c *gin.Context) {
	var req forwardMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	msg, err := h.service.ForwardMessage(c.Request.Context(), auth.CallerID(c), req.ConversationID, req.MessageID, req.ToUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msg,
	})
}

func (h *chatHandler) DeleteMessage(c *gin.Context) {
	conversationID := c.Param("conversationId")
	messageID := c.Param("messageId")

	if err := h.service.DeleteMessage(c.Request.Context(), auth.CallerID(c), conversationID, messageID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "deleted",
	})
}

type markReadRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *chatHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), auth.CallerID(c), req.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "marked read",
	})
}

type typingRequest struct {
	UserID   string `json:"userId" binding:"required"`
	IsTyping bool   `json:"isTyping"`
}

func (h *chatHandler) SetTyping(c *gin.Context) {
	var req typingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	h.service.SetTyping(c.Request.Context(), auth.CallerID(c), req.UserID, req.IsTyping)

	c.JSON(http.StatusOK, gin.H{
		"message": "ok",
	})
}

func (h *chatHandler) GetMessages(c *gin.Context) {
	otherUserID := c.Param("userId")
	page := c.DefaultQuery("page", "1")
	pageNumber, err := strconv.ParseInt(page, 10, 64)
	if err != nil || pageNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid page number",
		})
		return
	}

	msgs, err := h.service.ListMessages(c.Request.Context(), auth.CallerID(c), otherUserID, pageNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
	})
}

func (h *chatHandler) GetConversations(c *gin.Context) {
	cvs, err := h.service.ListConversations(c.Request.Context(), auth.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": cvs,
	})
}
