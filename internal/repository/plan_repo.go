package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(plan *model.Plan) error {
	return r.db.Create(plan).Error
}

func (r *PlanRepository) GetByID(id int64) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive 在售套餐，按价格升序
func (r *PlanRepository) ListActive() ([]model.Plan, error) {
	var plans []model.Plan
	err := r.db.Where("active = ?", true).Order("price ASC, id ASC").Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) List() ([]model.Plan, error) {
	var plans []model.Plan
	err := r.db.Order("id ASC").Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Plan{}).Where("id = ?", id).Updates(fields).Error
}

// IsReferenced 是否已被订阅引用
func (r *PlanRepository) IsReferenced(id int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).Where("plan_id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *PlanRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&model.Plan{}).Where("active = ?", true).Count(&count).Error
	return count, err
}
