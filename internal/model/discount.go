package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 折扣类型
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Discount struct {
	ID            int64               `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"size:100;not null" json:"name"`
	Code          string              `gorm:"size:50;uniqueIndex;not null" json:"code"`
	DiscountType  string              `gorm:"size:20;not null" json:"discount_type"` // percentage, fixed
	DiscountValue decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	MinAmount     decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"min_amount"`
	MaxDiscount   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"max_discount"` // 仅百分比折扣
	ValidFrom     time.Time           `gorm:"not null" json:"valid_from"`
	ValidUntil    time.Time           `gorm:"not null" json:"valid_until"`
	UsageLimit    *int                `json:"usage_limit"`
	UsedCount     int                 `gorm:"not null;default:0" json:"used_count"`
	Active        bool                `gorm:"not null;index" json:"active"`
	Description   string              `gorm:"type:text" json:"description"`
	CreatedAt     time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (Discount) TableName() string {
	return "discounts"
}

// Remaining 剩余可用次数，nil 表示不限
func (d *Discount) Remaining() *int {
	if d.UsageLimit == nil {
		return nil
	}
	left := *d.UsageLimit - d.UsedCount
	if left < 0 {
		left = 0
	}
	return &left
}

type DiscountUsage struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	DiscountID     int64           `gorm:"not null;index" json:"discount_id"`
	UserID         int64           `gorm:"not null;index" json:"user_id"`
	SubscriptionID int64           `gorm:"not null;index" json:"subscription_id"`
	AmountSaved    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_saved"`
	UsedAt         time.Time       `gorm:"not null" json:"used_at"`
}

func (DiscountUsage) TableName() string {
	return "discount_usages"
}
