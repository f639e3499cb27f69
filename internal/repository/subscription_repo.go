package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Omit("Plan").Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Preload("Plan").Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByUser 用户全部订阅，最新在前
func (r *SubscriptionRepository) ListByUser(userID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Preload("Plan").
		Where("user_id = ?", userID).
		Order("start_date DESC, id DESC").
		Find(&subs).Error
	return subs, err
}

// ListActiveByUser 用户有效订阅
func (r *SubscriptionRepository) ListActiveByUser(userID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Preload("Plan").
		Where("user_id = ? AND status = ?", userID, model.SubscriptionActive).
		Order("start_date DESC, id DESC").
		Find(&subs).Error
	return subs, err
}

// ListExpiring 在 [now, until] 内到期的有效订阅
func (r *SubscriptionRepository) ListExpiring(userID int64, now, until time.Time) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Preload("Plan").
		Where("user_id = ? AND status = ?", userID, model.SubscriptionActive).
		Where("end_date >= ? AND end_date <= ?", now, until).
		Order("end_date ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Update("status", status).Error
}

// Renew 重新激活并延长到期时间
func (r *SubscriptionRepository) Renew(id int64, endDate time.Time) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":   model.SubscriptionActive,
		"end_date": endDate,
	}).Error
}

func (r *SubscriptionRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
