package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// List 我的会话
// GET /api/v1/chats
func (h *ChatHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.chatService.List(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// Create 新建会话
// POST /api/v1/chats
func (h *ChatHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreateChatRequest
	// 请求体可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	item, err := h.chatService.Create(actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, item)
}

// Messages 会话消息
// GET /api/v1/chats/:id/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	chatID, ok := pathID(c)
	if !ok {
		return
	}

	items, err := h.chatService.Messages(actor, chatID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// AddMessage 追加消息
// POST /api/v1/chats/:id/messages
func (h *ChatHandler) AddMessage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	chatID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.chatService.AddMessage(actor, chatID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, item)
}

// Reply 机器人回复
// POST /api/v1/chatbot
func (h *ChatHandler) Reply(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.ChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.chatService.Reply(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}
