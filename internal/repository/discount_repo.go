package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

// ErrDiscountExhausted 条件自增未命中：折扣已停用或次数已用完
var ErrDiscountExhausted = errors.New("discount exhausted")

type DiscountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

func (r *DiscountRepository) Create(discount *model.Discount) error {
	return r.db.Create(discount).Error
}

func (r *DiscountRepository) GetByID(id int64) (*model.Discount, error) {
	var discount model.Discount
	err := r.db.Where("id = ?", id).First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// GetByCode code 需已规范化为大写
func (r *DiscountRepository) GetByCode(code string) (*model.Discount, error) {
	var discount model.Discount
	err := r.db.Where("code = ?", code).First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *DiscountRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Discount{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *DiscountRepository) List() ([]model.Discount, error) {
	var discounts []model.Discount
	err := r.db.Order("created_at DESC, id DESC").Find(&discounts).Error
	return discounts, err
}

// ListAvailable 当前有效且启用的折扣
func (r *DiscountRepository) ListAvailable(now time.Time) ([]model.Discount, error) {
	var discounts []model.Discount
	err := r.db.Where("active = ? AND valid_from <= ? AND valid_until >= ?", true, now, now).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		Order("valid_until ASC").
		Find(&discounts).Error
	return discounts, err
}

// ListCreatedSince 指定时间后新建的启用折扣
func (r *DiscountRepository) ListCreatedSince(since time.Time) ([]model.Discount, error) {
	var discounts []model.Discount
	err := r.db.Where("active = ? AND created_at >= ?", true, since).
		Order("created_at DESC").
		Find(&discounts).Error
	return discounts, err
}

func (r *DiscountRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Discount{}).Where("id = ?", id).Updates(fields).Error
}

// Redeem 原子条件自增 used_count，并发下不会超过 usage_limit
func (r *DiscountRepository) Redeem(id int64) error {
	result := r.db.Model(&model.Discount{}).
		Where("id = ? AND active = ?", id, true).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDiscountExhausted
	}
	return nil
}

func (r *DiscountRepository) CreateUsage(usage *model.DiscountUsage) error {
	return r.db.Create(usage).Error
}

// ListUsages 分页查询折扣使用记录，最新在前
func (r *DiscountRepository) ListUsages(discountID int64, offset, limit int) ([]model.DiscountUsage, int64, error) {
	var total int64
	if err := r.db.Model(&model.DiscountUsage{}).Where("discount_id = ?", discountID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var usages []model.DiscountUsage
	err := r.db.Where("discount_id = ?", discountID).
		Order("used_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&usages).Error
	return usages, total, err
}

func (r *DiscountRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&model.Discount{}).Where("active = ?", true).Count(&count).Error
	return count, err
}
