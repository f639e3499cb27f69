package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
)

type DiscountHandler struct {
	discountService *service.DiscountService
}

func NewDiscountHandler(discountService *service.DiscountService) *DiscountHandler {
	return &DiscountHandler{
		discountService: discountService,
	}
}

// Preview 折扣预览，不占用名额
// POST /api/v1/discounts/preview
func (h *DiscountHandler) Preview(c *gin.Context) {
	var req dto.PreviewDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.discountService.Preview(c.Request.Context(), req.Code, req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Offers 当前可用的优惠
// GET /api/v1/discounts/offers
func (h *DiscountHandler) Offers(c *gin.Context) {
	items, err := h.discountService.Offers()
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// List 全部折扣（管理员）
// GET /api/v1/admin/discounts
func (h *DiscountHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.discountService.List(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// Create 创建折扣
// POST /api/v1/admin/discounts
func (h *DiscountHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.discountService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "discount created", item)
}

// Update 更新折扣
// PUT /api/v1/admin/discounts/:id
func (h *DiscountHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	discountID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.discountService.Update(c.Request.Context(), actor, discountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "discount updated", item)
}

// Toggle 启用/停用折扣
// POST /api/v1/admin/discounts/:id/toggle
func (h *DiscountHandler) Toggle(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	discountID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.discountService.Toggle(c.Request.Context(), actor, discountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, item)
}

// Usages 折扣使用记录
// GET /api/v1/admin/discounts/:id/usages
func (h *DiscountHandler) Usages(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	discountID, ok := pathID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.discountService.Usages(actor, discountID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}
