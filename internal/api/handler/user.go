package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	recService  *service.RecommendationService
}

func NewUserHandler(userService *service.UserService, recService *service.RecommendationService) *UserHandler {
	return &UserHandler{
		userService: userService,
		recService:  recService,
	}
}

// GetProfile 获取当前用户信息
// GET /api/v1/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, profile)
}

// UpdateAccount 修改用户名、邮箱或密码
// PUT /api/v1/user/account
func (h *UserHandler) UpdateAccount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	profile, err := h.userService.UpdateAccount(actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "account updated", profile)
}

// Recommendations 套餐推荐与可用优惠
// GET /api/v1/user/recommendations
func (h *UserHandler) Recommendations(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	resp, err := h.recService.Recommendations(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Notifications 到期提醒与新折扣
// GET /api/v1/user/notifications
func (h *UserHandler) Notifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.recService.Notifications(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}
