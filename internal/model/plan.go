package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Plan struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	QuotaGB     int             `gorm:"column:quota_gb;not null;default:0" json:"quota_gb"` // 0 表示不限量
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Active      bool            `gorm:"not null;index" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

func (p *Plan) Unlimited() bool {
	return p.QuotaGB == 0
}
