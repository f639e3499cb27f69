package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
)

type PaymentMethodHandler struct {
	pmService *service.PaymentMethodService
}

func NewPaymentMethodHandler(pmService *service.PaymentMethodService) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		pmService: pmService,
	}
}

// List 我的支付方式
// GET /api/v1/payment-methods
func (h *PaymentMethodHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.pmService.List(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// Add 添加支付方式
// POST /api/v1/payment-methods
func (h *PaymentMethodHandler) Add(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.AddPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, err := h.pmService.Add(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "payment method added", item)
}

// SetDefault 设为默认
// PUT /api/v1/payment-methods/:id/default
func (h *PaymentMethodHandler) SetDefault(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	pmID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.pmService.SetDefault(c.Request.Context(), actor, pmID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "default payment method updated", nil)
}

// Delete 删除支付方式
// DELETE /api/v1/payment-methods/:id
func (h *PaymentMethodHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	pmID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.pmService.Delete(c.Request.Context(), actor, pmID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "payment method removed", nil)
}
