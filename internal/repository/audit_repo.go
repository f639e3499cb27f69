package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(entry *model.AuditLog) error {
	return r.db.Create(entry).Error
}

func (r *AuditRepository) ListRecent(limit int) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *AuditRepository) ListByActor(actorID int64, limit int) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := r.db.Where("actor_id = ?", actorID).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
