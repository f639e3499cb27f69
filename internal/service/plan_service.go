package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/repository"
)

const activePlansCacheKey = "plans:active"

type PlanService struct {
	planRepo *repository.PlanRepository
	store    *repository.Store
	cache    *gocache.Cache
}

func NewPlanService(planRepo *repository.PlanRepository, store *repository.Store) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		store:    store,
		cache:    gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// ListActive 在售套餐，按价格升序，结果缓存到管理员修改为止
func (s *PlanService) ListActive() ([]model.Plan, error) {
	if cached, ok := s.cache.Get(activePlansCacheKey); ok {
		return cached.([]model.Plan), nil
	}

	plans, err := s.planRepo.ListActive()
	if err != nil {
		return nil, err
	}

	s.cache.Set(activePlansCacheKey, plans, gocache.DefaultExpiration)
	return plans, nil
}

// ListAll 管理端套餐列表，包含已下架
func (s *PlanService) ListAll() ([]dto.PlanItem, error) {
	plans, err := s.planRepo.List()
	if err != nil {
		return nil, err
	}
	return BuildPlanItems(plans), nil
}

// Create 创建套餐
func (s *PlanService) Create(ctx context.Context, actor Actor, req *dto.CreatePlanRequest) (*dto.PlanItem, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	price, err := parseMoney(req.Price)
	if err != nil {
		return nil, err
	}

	plan := &model.Plan{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		QuotaGB:     req.QuotaGB,
		Price:       price,
		Active:      true,
	}

	err = s.store.Transaction(ctx, func(r *repository.Repos) error {
		if err := r.Plans.Create(plan); err != nil {
			return err
		}
		return writeAudit(r.Audit, actor, "Created plan "+plan.Name)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	item := buildPlanItem(plan)
	return &item, nil
}

// Update 修改套餐，已有订阅不受影响
func (s *PlanService) Update(ctx context.Context, actor Actor, planID int64, req *dto.UpdatePlanRequest) (*dto.PlanItem, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.QuotaGB != nil {
		fields["quota_gb"] = *req.QuotaGB
	}
	if req.Price != nil {
		price, err := parseMoney(*req.Price)
		if err != nil {
			return nil, err
		}
		fields["price"] = price
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}

	var plan *model.Plan
	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		if _, err := r.Plans.GetByID(planID); err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := r.Plans.UpdateFields(planID, fields); err != nil {
				return err
			}
		}

		var err error
		plan, err = r.Plans.GetByID(planID)
		if err != nil {
			return err
		}
		return writeAudit(r.Audit, actor, "Edited plan "+plan.Name)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	s.invalidate()
	item := buildPlanItem(plan)
	return &item, nil
}

// Deactivate 下架套餐（软删除）
func (s *PlanService) Deactivate(ctx context.Context, actor Actor, planID int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		plan, err := r.Plans.GetByID(planID)
		if err != nil {
			return err
		}
		if err := r.Plans.UpdateFields(planID, map[string]interface{}{"active": false}); err != nil {
			return err
		}
		return writeAudit(r.Audit, actor, "Deactivated plan "+plan.Name)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlanNotFound
		}
		return err
	}

	s.invalidate()
	return nil
}

func (s *PlanService) invalidate() {
	s.cache.Delete(activePlansCacheKey)
}

// BuildPlanItems 转换为前端展示结构
func BuildPlanItems(plans []model.Plan) []dto.PlanItem {
	items := make([]dto.PlanItem, 0, len(plans))
	for i := range plans {
		items = append(items, buildPlanItem(&plans[i]))
	}
	return items
}

func buildPlanItem(p *model.Plan) dto.PlanItem {
	return dto.PlanItem{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		QuotaGB:     p.QuotaGB,
		Quota:       quotaLabel(p),
		Price:       money(p.Price),
		Active:      p.Active,
	}
}

func quotaLabel(p *model.Plan) string {
	if p.Unlimited() {
		return "Unlimited"
	}
	return fmt.Sprintf("%dGB", p.QuotaGB)
}
