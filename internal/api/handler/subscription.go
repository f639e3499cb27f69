package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/service"
)

type SubscriptionHandler struct {
	subService     *service.SubscriptionService
	billingService *service.BillingService
}

func NewSubscriptionHandler(subService *service.SubscriptionService, billingService *service.BillingService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService:     subService,
		billingService: billingService,
	}
}

// List 我的订阅
// GET /api/v1/subscriptions
func (h *SubscriptionHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.subService.ListMine(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}

// Charge 订阅下单
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Charge(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	outcome, err := h.billingService.Charge(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "subscribed to " + outcome.PlanName
	if outcome.DiscountRejection != nil {
		msg += ", discount not applied: " + outcome.DiscountRejection.Message
	}
	response.SuccessWithMessage(c, msg, outcome)
}

// Cancel 取消订阅
// POST /api/v1/subscriptions/:id/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	subID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.subService.Cancel(c.Request.Context(), actor, subID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "subscription cancelled", nil)
}

// Renew 续订一个周期
// POST /api/v1/subscriptions/:id/renew
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	subID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.subService.Renew(c.Request.Context(), actor, subID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "subscription renewed", item)
}

// ChangePlan 更换套餐
// POST /api/v1/subscriptions/:id/change-plan
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	h.changePlan(c, "")
}

// Upgrade 升级套餐
// POST /api/v1/subscriptions/:id/upgrade
func (h *SubscriptionHandler) Upgrade(c *gin.Context) {
	h.changePlan(c, service.DirectionUpgrade)
}

// Downgrade 降级套餐
// POST /api/v1/subscriptions/:id/downgrade
func (h *SubscriptionHandler) Downgrade(c *gin.Context) {
	h.changePlan(c, service.DirectionDowngrade)
}

func (h *SubscriptionHandler) changePlan(c *gin.Context, expected string) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	subID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subService.ChangePlan(c.Request.Context(), actor, subID, &req, expected)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "plan changed to "+resp.PlanName, resp)
}

// BillingHistory 我的账单记录
// GET /api/v1/billing
func (h *SubscriptionHandler) BillingHistory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.billingService.History(actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, items)
}
