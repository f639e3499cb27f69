package dto

import (
	"time"

	"github.com/qs3c/sub_go_server/internal/pricing"
)

// ChargeRequest 订阅下单，必须指定支付方式
type ChargeRequest struct {
	PlanID          int64  `json:"plan_id" binding:"required"`
	PaymentMethodID *int64 `json:"payment_method_id,omitempty"`
	DiscountCode    string `json:"discount_code,omitempty" binding:"omitempty,max=50"`
}

// BillingOutcome 一次扣费的结果
type BillingOutcome struct {
	SubscriptionID    int64              `json:"subscription_id"`
	BillingRecordID   int64              `json:"billing_record_id"`
	InvoiceNumber     string             `json:"invoice_number"`
	PlanName          string             `json:"plan_name"`
	OriginalAmount    string             `json:"original_amount"`
	DiscountAmount    string             `json:"discount_amount"`
	FinalAmount       string             `json:"final_amount"`
	DiscountApplied   bool               `json:"discount_applied"`
	DiscountCode      string             `json:"discount_code,omitempty"`
	DiscountRejection *pricing.Rejection `json:"discount_rejection,omitempty"`
	PaymentMethod     string             `json:"payment_method"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
}

// ChangePlanRequest 更换套餐
type ChangePlanRequest struct {
	NewPlanID       int64  `json:"new_plan_id" binding:"required"`
	PaymentMethodID *int64 `json:"payment_method_id,omitempty"`
}

// ChangePlanResponse 更换套餐结果
type ChangePlanResponse struct {
	PreviousSubscriptionID int64  `json:"previous_subscription_id"`
	Direction              string `json:"direction"` // upgrade, downgrade, lateral
	*BillingOutcome
}

// SubscriptionItem 订阅
type SubscriptionItem struct {
	ID        int64     `json:"id"`
	PlanID    int64     `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	Price     string    `json:"price"`
	Quota     string    `json:"quota"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	DaysLeft  int       `json:"days_left"`
}
