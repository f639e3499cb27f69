package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pricing"
	"github.com/qs3c/sub_go_server/internal/repository"
)

type DiscountService struct {
	discountRepo *repository.DiscountRepository
	planRepo     *repository.PlanRepository
	store        *repository.Store
	cfg          *config.Config
	now          func() time.Time
}

func NewDiscountService(discountRepo *repository.DiscountRepository, planRepo *repository.PlanRepository, store *repository.Store, cfg *config.Config) *DiscountService {
	return &DiscountService{
		discountRepo: discountRepo,
		planRepo:     planRepo,
		store:        store,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Preview 只读预览折扣效果，不修改使用次数；拒绝时返回 *pricing.Rejection
func (s *DiscountService) Preview(ctx context.Context, code string, planID int64) (*dto.PreviewDiscountResponse, error) {
	plan, err := s.planRepo.GetByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.Active {
		return nil, ErrPlanInactive
	}

	normalized := pricing.NormalizeCode(code)
	discount, err := s.lookup(normalized)
	if err != nil {
		return nil, err
	}

	result, rejection := pricing.Evaluate(discount, plan.Price, s.now())
	if rejection != nil {
		if rejection.Code == "" {
			rejection.Code = normalized
		}
		return nil, rejection
	}

	return &dto.PreviewDiscountResponse{
		Code:           result.Code,
		PlanID:         plan.ID,
		PlanName:       plan.Name,
		OriginalAmount: money(plan.Price),
		DiscountAmount: money(result.Amount),
		FinalAmount:    money(result.FinalPrice),
	}, nil
}

// lookup 折扣码不存在时返回 nil, nil
func (s *DiscountService) lookup(code string) (*model.Discount, error) {
	if code == "" {
		return nil, nil
	}
	discount, err := s.discountRepo.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return discount, nil
}

// Offers 当前可用的折扣
func (s *DiscountService) Offers() ([]dto.DiscountItem, error) {
	discounts, err := s.discountRepo.ListAvailable(s.now())
	if err != nil {
		return nil, err
	}
	return s.buildItems(discounts), nil
}

// List 管理端折扣列表
func (s *DiscountService) List(actor Actor) ([]dto.DiscountItem, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	discounts, err := s.discountRepo.List()
	if err != nil {
		return nil, err
	}
	return s.buildItems(discounts), nil
}

// Create 创建折扣，折扣码统一大写
func (s *DiscountService) Create(ctx context.Context, actor Actor, req *dto.CreateDiscountRequest) (*dto.DiscountItem, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	discount := &model.Discount{
		Name:         strings.TrimSpace(req.Name),
		Code:         pricing.NormalizeCode(req.Code),
		DiscountType: req.DiscountType,
		ValidFrom:    req.ValidFrom,
		ValidUntil:   req.ValidUntil,
		UsageLimit:   req.UsageLimit,
		Active:       true,
		Description:  req.Description,
	}

	var err error
	if discount.DiscountValue, err = parseMoney(req.DiscountValue); err != nil {
		return nil, err
	}
	if req.MinAmount != "" {
		if discount.MinAmount, err = parseMoney(req.MinAmount); err != nil {
			return nil, err
		}
	}
	if req.MaxDiscount != nil && *req.MaxDiscount != "" {
		max, err := parseMoney(*req.MaxDiscount)
		if err != nil {
			return nil, err
		}
		discount.MaxDiscount = decimal.NewNullDecimal(max)
	}
	if err := validateDiscount(discount); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(r *repository.Repos) error {
		exists, err := r.Discounts.ExistsByCode(discount.Code)
		if err != nil {
			return err
		}
		if exists {
			return ErrDiscountCodeExists
		}
		if err := r.Discounts.Create(discount); err != nil {
			return err
		}
		return writeAudit(r.Audit, actor, "Created discount "+discount.Name)
	})
	if err != nil {
		return nil, err
	}

	item := s.buildItem(discount)
	return &item, nil
}

// Update 修改折扣，code 与类型不可修改
func (s *DiscountService) Update(ctx context.Context, actor Actor, discountID int64, req *dto.UpdateDiscountRequest) (*dto.DiscountItem, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var discount *model.Discount
	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		var err error
		discount, err = r.Discounts.GetByID(discountID)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if req.Name != nil {
			discount.Name = strings.TrimSpace(*req.Name)
			fields["name"] = discount.Name
		}
		if req.DiscountValue != nil {
			if discount.DiscountValue, err = parseMoney(*req.DiscountValue); err != nil {
				return err
			}
			fields["discount_value"] = discount.DiscountValue
		}
		if req.MinAmount != nil {
			if discount.MinAmount, err = parseMoney(*req.MinAmount); err != nil {
				return err
			}
			fields["min_amount"] = discount.MinAmount
		}
		if req.MaxDiscount != nil {
			if *req.MaxDiscount == "" {
				discount.MaxDiscount = decimal.NullDecimal{}
			} else {
				max, err := parseMoney(*req.MaxDiscount)
				if err != nil {
					return err
				}
				discount.MaxDiscount = decimal.NewNullDecimal(max)
			}
			fields["max_discount"] = discount.MaxDiscount
		}
		if req.ValidFrom != nil {
			discount.ValidFrom = *req.ValidFrom
			fields["valid_from"] = discount.ValidFrom
		}
		if req.ValidUntil != nil {
			discount.ValidUntil = *req.ValidUntil
			fields["valid_until"] = discount.ValidUntil
		}
		if req.UsageLimit != nil {
			discount.UsageLimit = req.UsageLimit
			fields["usage_limit"] = *req.UsageLimit
		}
		if req.Description != nil {
			discount.Description = *req.Description
			fields["description"] = discount.Description
		}

		if err := validateDiscount(discount); err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := r.Discounts.UpdateFields(discountID, fields); err != nil {
				return err
			}
		}
		return writeAudit(r.Audit, actor, "Edited discount "+discount.Name)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}

	item := s.buildItem(discount)
	return &item, nil
}

// Toggle 启用/停用折扣
func (s *DiscountService) Toggle(ctx context.Context, actor Actor, discountID int64) (*dto.DiscountItem, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var discount *model.Discount
	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		var err error
		discount, err = r.Discounts.GetByID(discountID)
		if err != nil {
			return err
		}

		discount.Active = !discount.Active
		if err := r.Discounts.UpdateFields(discountID, map[string]interface{}{"active": discount.Active}); err != nil {
			return err
		}

		state := "inactive"
		if discount.Active {
			state = "active"
		}
		return writeAudit(r.Audit, actor, "Toggled discount "+discount.Name+" to "+state)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}

	item := s.buildItem(discount)
	return &item, nil
}

// Usages 分页查询某个折扣的使用记录
func (s *DiscountService) Usages(actor Actor, discountID int64, page, pageSize int) ([]dto.DiscountUsageItem, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	if _, err := s.discountRepo.GetByID(discountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrDiscountNotFound
		}
		return nil, 0, err
	}

	usages, total, err := s.discountRepo.ListUsages(discountID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.DiscountUsageItem, 0, len(usages))
	for _, u := range usages {
		items = append(items, dto.DiscountUsageItem{
			ID:             u.ID,
			UserID:         u.UserID,
			SubscriptionID: u.SubscriptionID,
			AmountSaved:    money(u.AmountSaved),
			UsedAt:         u.UsedAt,
		})
	}
	return items, total, nil
}

func validateDiscount(d *model.Discount) error {
	if d.DiscountValue.IsZero() {
		return ErrInvalidAmount
	}
	if d.DiscountType == model.DiscountPercentage && d.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidAmount
	}
	if !d.ValidUntil.After(d.ValidFrom) {
		return ErrInvalidValidity
	}
	return nil
}

func (s *DiscountService) buildItems(discounts []model.Discount) []dto.DiscountItem {
	items := make([]dto.DiscountItem, 0, len(discounts))
	for i := range discounts {
		items = append(items, s.buildItem(&discounts[i]))
	}
	return items
}

func (s *DiscountService) buildItem(d *model.Discount) dto.DiscountItem {
	item := dto.DiscountItem{
		ID:            d.ID,
		Name:          d.Name,
		Code:          d.Code,
		DiscountType:  d.DiscountType,
		DiscountValue: money(d.DiscountValue),
		Label:         discountLabel(d, s.cfg.Billing.CurrencySymbol),
		MinAmount:     money(d.MinAmount),
		ValidFrom:     d.ValidFrom,
		ValidUntil:    d.ValidUntil,
		UsageLimit:    d.UsageLimit,
		UsedCount:     d.UsedCount,
		Remaining:     d.Remaining(),
		Active:        d.Active,
		Description:   d.Description,
	}
	if d.MaxDiscount.Valid {
		max := money(d.MaxDiscount.Decimal)
		item.MaxDiscount = &max
	}
	return item
}

// discountLabel 如 "20%" 或 "₹100"
func discountLabel(d *model.Discount, currency string) string {
	if d.DiscountType == model.DiscountPercentage {
		return d.DiscountValue.String() + "%"
	}
	return currency + d.DiscountValue.String()
}
