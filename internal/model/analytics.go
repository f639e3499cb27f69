package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 快照指标名
const (
	MetricActiveSubscriptions = "active_subscriptions"
	MetricRevenue             = "revenue"
	MetricNewSubscriptions    = "new_subscriptions"
)

// AnalyticsSnapshot 每日指标快照
type AnalyticsSnapshot struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	MetricName  string          `gorm:"size:100;not null;index:idx_metric_date" json:"metric_name"`
	MetricValue decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"metric_value"`
	MetricDate  time.Time       `gorm:"not null;index:idx_metric_date" json:"metric_date"`
	PlanID      *int64          `gorm:"index" json:"plan_id,omitempty"`
}

func (AnalyticsSnapshot) TableName() string {
	return "analytics_snapshots"
}

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Plan{},
		&Discount{},
		&DiscountUsage{},
		&Subscription{},
		&PaymentMethod{},
		&BillingRecord{},
		&AuditLog{},
		&Chat{},
		&ChatMessage{},
		&AnalyticsSnapshot{},
	}
}
