package model

import (
	"time"
)

// 订阅状态
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
)

type Subscription struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	PlanID    int64     `gorm:"not null;index" json:"plan_id"`
	Plan      *Plan     `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status    string    `gorm:"size:20;default:active;index" json:"status"` // active, cancelled
	StartDate time.Time `gorm:"not null;index" json:"start_date"`
	EndDate   time.Time `gorm:"not null;index" json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// 状态迁移：active -> cancelled（取消），active|cancelled -> active（续订）
var subscriptionTransitions = map[string][]string{
	SubscriptionActive:    {SubscriptionCancelled, SubscriptionActive},
	SubscriptionCancelled: {SubscriptionActive},
}

// CanTransition 判断是否允许迁移到目标状态
func (s *Subscription) CanTransition(to string) bool {
	for _, next := range subscriptionTransitions[s.Status] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}
