package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
)

type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// ListActive 在售套餐
// GET /api/v1/plans
func (h *PlanHandler) ListActive(c *gin.Context) {
	plans, err := h.planService.ListActive()
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, service.BuildPlanItems(plans))
}

// ListAll 全部套餐（管理员）
// GET /api/v1/admin/plans
func (h *PlanHandler) ListAll(c *gin.Context) {
	items, err := h.planService.ListAll()
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// Create 创建套餐
// POST /api/v1/admin/plans
func (h *PlanHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.planService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "plan created", item)
}

// Update 更新套餐
// PUT /api/v1/admin/plans/:id
func (h *PlanHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	planID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.planService.Update(c.Request.Context(), actor, planID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "plan updated", item)
}

// Deactivate 下架套餐
// POST /api/v1/admin/plans/:id/deactivate
func (h *PlanHandler) Deactivate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	planID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.planService.Deactivate(c.Request.Context(), actor, planID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "plan deactivated", nil)
}
