package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

// BillingRepository 账单只提供追加与查询
type BillingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

func (r *BillingRepository) Create(record *model.BillingRecord) error {
	return r.db.Omit("Subscription", "PaymentMethod").Create(record).Error
}

func (r *BillingRepository) GetByID(id int64) (*model.BillingRecord, error) {
	var record model.BillingRecord
	err := r.db.Preload("Subscription.Plan").Preload("PaymentMethod").
		Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SetReceiptKey 回填回执对象路径
func (r *BillingRepository) SetReceiptKey(id int64, key string) error {
	result := r.db.Model(&model.BillingRecord{}).Where("id = ?", id).Update("receipt_key", key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BillingRepository) ListByUser(userID int64) ([]model.BillingRecord, error) {
	var records []model.BillingRecord
	err := r.db.Preload("Subscription.Plan").Preload("PaymentMethod").
		Where("user_id = ?", userID).
		Order("billed_at DESC, id DESC").
		Find(&records).Error
	return records, err
}

func (r *BillingRepository) ListBySubscription(subID int64) ([]model.BillingRecord, error) {
	var records []model.BillingRecord
	err := r.db.Where("subscription_id = ?", subID).Order("billed_at ASC").Find(&records).Error
	return records, err
}

func (r *BillingRepository) ExistsByInvoice(invoice string) (bool, error) {
	var count int64
	err := r.db.Model(&model.BillingRecord{}).Where("invoice_number = ?", invoice).Count(&count).Error
	return count > 0, err
}
