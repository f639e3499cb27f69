package model

import (
	"time"
)

type AuditLog struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ActorID   int64     `gorm:"index" json:"actor_id"`
	Actor     string    `gorm:"size:50;not null" json:"actor"`
	Action    string    `gorm:"size:255;not null" json:"action"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
