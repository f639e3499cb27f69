package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

type PaymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) Create(pm *model.PaymentMethod) error {
	return r.db.Create(pm).Error
}

func (r *PaymentMethodRepository) GetByID(id int64) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	err := r.db.Where("id = ?", id).First(&pm).Error
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

// ListActiveByUser 默认支付方式排最前，其余按新建时间倒序
func (r *PaymentMethodRepository) ListActiveByUser(userID int64) ([]model.PaymentMethod, error) {
	var pms []model.PaymentMethod
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&pms).Error
	return pms, err
}

func (r *PaymentMethodRepository) CountActiveByUser(userID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.PaymentMethod{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}

// SetDefault 清除用户其他默认标记后设置新的默认支付方式
func (r *PaymentMethodRepository) SetDefault(userID, id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.PaymentMethod{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.PaymentMethod{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("is_default", true).Error
	})
}

// Deactivate 软删除，同时取消默认
func (r *PaymentMethodRepository) Deactivate(id int64) error {
	return r.db.Model(&model.PaymentMethod{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_active":  false,
		"is_default": false,
	}).Error
}
