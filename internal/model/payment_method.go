package model

import (
	"fmt"
	"strings"
	"time"
)

// 支付方式种类
const (
	PaymentKindCard = "card"
	PaymentKindUPI  = "upi"
)

// PaymentMethod 支付方式，card 与 upi 共用掩码标识，UPI 无有效期
type PaymentMethod struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"not null;index" json:"user_id"`
	Kind        string    `gorm:"size:10;not null" json:"kind"`   // card, upi
	Brand       string    `gorm:"size:20;not null" json:"brand"`  // visa, mastercard, amex, rupay, upi
	MaskedID    string    `gorm:"size:50;not null" json:"masked"` // 卡号后四位 / UPI 句柄后缀
	ExpiryMonth *int      `json:"expiry_month,omitempty"`
	ExpiryYear  *int      `json:"expiry_year,omitempty"`
	IsDefault   bool      `gorm:"not null;default:false" json:"is_default"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// Display 返回掩码描述，如 "VISA ****4242"
func (p *PaymentMethod) Display() string {
	return fmt.Sprintf("%s ****%s", strings.ToUpper(p.Brand), p.MaskedID)
}

// Expired 卡片是否已过期，UPI 永不过期
func (p *PaymentMethod) Expired(now time.Time) bool {
	if p.ExpiryMonth == nil || p.ExpiryYear == nil {
		return false
	}
	// 有效期到当月最后一天
	end := time.Date(*p.ExpiryYear, time.Month(*p.ExpiryMonth)+1, 1, 0, 0, 0, 0, now.Location())
	return !now.Before(end)
}
