package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 账单状态
const (
	BillingPaid    = "paid"
	BillingPending = "pending"
	BillingFailed  = "failed"
)

// BillingRecord 账单流水，金额等字段只追加不修改
type BillingRecord struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	SubscriptionID  int64           `gorm:"not null;index" json:"subscription_id"`
	Subscription    *Subscription   `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethodID *int64          `gorm:"index" json:"payment_method_id"`
	PaymentMethod   *PaymentMethod  `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`
	Status          string          `gorm:"size:20;not null;default:paid;index" json:"status"`
	BilledAt        time.Time       `gorm:"not null;index" json:"billed_at"`
	InvoiceNumber   string          `gorm:"size:64;uniqueIndex;not null" json:"invoice_number"`
	Description     string          `gorm:"size:255" json:"description"`
	// 回执归档后的对象路径，由 worker 回填
	ReceiptKey string `gorm:"size:255" json:"-"`
}

func (BillingRecord) TableName() string {
	return "billing_records"
}
