package dto

import "time"

// PreviewDiscountRequest 折扣预览
type PreviewDiscountRequest struct {
	Code   string `json:"code" binding:"required,max=50"`
	PlanID int64  `json:"plan_id" binding:"required"`
}

// PreviewDiscountResponse 折扣预览结果
type PreviewDiscountResponse struct {
	Code           string `json:"code"`
	PlanID         int64  `json:"plan_id"`
	PlanName       string `json:"plan_name"`
	OriginalAmount string `json:"original_amount"`
	DiscountAmount string `json:"discount_amount"`
	FinalAmount    string `json:"final_amount"`
}

// DiscountItem 折扣
type DiscountItem struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discount_type"`
	DiscountValue string    `json:"discount_value"`
	Label         string    `json:"label"` // "20%" / "₹100"
	MinAmount     string    `json:"min_amount"`
	MaxDiscount   *string   `json:"max_discount,omitempty"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidUntil    time.Time `json:"valid_until"`
	UsageLimit    *int      `json:"usage_limit"`
	UsedCount     int       `json:"used_count"`
	Remaining     *int      `json:"remaining"`
	Active        bool      `json:"active"`
	Description   string    `json:"description"`
}

// DiscountUsageItem 折扣使用记录
type DiscountUsageItem struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	SubscriptionID int64     `json:"subscription_id"`
	AmountSaved    string    `json:"amount_saved"`
	UsedAt         time.Time `json:"used_at"`
}

// CreateDiscountRequest 创建折扣
type CreateDiscountRequest struct {
	Name          string    `json:"name" binding:"required,max=100"`
	Code          string    `json:"code" binding:"required,max=50"`
	DiscountType  string    `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue string    `json:"discount_value" binding:"required"`
	MinAmount     string    `json:"min_amount,omitempty"`
	MaxDiscount   *string   `json:"max_discount,omitempty"`
	ValidFrom     time.Time `json:"valid_from" binding:"required"`
	ValidUntil    time.Time `json:"valid_until" binding:"required"`
	UsageLimit    *int      `json:"usage_limit,omitempty" binding:"omitempty,min=1"`
	Description   string    `json:"description,omitempty" binding:"omitempty,max=2000"`
}

// UpdateDiscountRequest 更新折扣，字段为空表示不修改
type UpdateDiscountRequest struct {
	Name          *string    `json:"name,omitempty" binding:"omitempty,max=100"`
	DiscountValue *string    `json:"discount_value,omitempty"`
	MinAmount     *string    `json:"min_amount,omitempty"`
	MaxDiscount   *string    `json:"max_discount,omitempty"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	UsageLimit    *int       `json:"usage_limit,omitempty" binding:"omitempty,min=1"`
	Description   *string    `json:"description,omitempty" binding:"omitempty,max=2000"`
}
