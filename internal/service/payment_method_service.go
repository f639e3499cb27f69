package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/repository"
)

type PaymentMethodService struct {
	store  *repository.Store
	pmRepo *repository.PaymentMethodRepository
	now    func() time.Time
}

func NewPaymentMethodService(store *repository.Store, pmRepo *repository.PaymentMethodRepository) *PaymentMethodService {
	return &PaymentMethodService{
		store:  store,
		pmRepo: pmRepo,
		now:    time.Now,
	}
}

// List 可用支付方式，默认在前
func (s *PaymentMethodService) List(actor Actor) ([]dto.PaymentMethodItem, error) {
	pms, err := s.pmRepo.ListActiveByUser(actor.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]dto.PaymentMethodItem, 0, len(pms))
	for i := range pms {
		items = append(items, buildPaymentMethodItem(&pms[i], now))
	}
	return items, nil
}

// Add 添加银行卡或 UPI，只保存掩码信息
func (s *PaymentMethodService) Add(ctx context.Context, actor Actor, req *dto.AddPaymentMethodRequest) (*dto.PaymentMethodItem, error) {
	now := s.now()
	pm, err := newPaymentMethod(actor.UserID, req, now)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(r *repository.Repos) error {
		// 第一个支付方式自动成为默认
		count, err := r.PaymentMethods.CountActiveByUser(actor.UserID)
		if err != nil {
			return err
		}
		makeDefault := pm.IsDefault || count == 0
		pm.IsDefault = false

		if err := r.PaymentMethods.Create(pm); err != nil {
			return err
		}
		if makeDefault {
			if err := r.PaymentMethods.SetDefault(actor.UserID, pm.ID); err != nil {
				return err
			}
			pm.IsDefault = true
		}
		return writeAudit(r.Audit, actor, fmt.Sprintf("Added %s payment method ending in %s", pm.Brand, pm.MaskedID))
	})
	if err != nil {
		return nil, err
	}

	item := buildPaymentMethodItem(pm, now)
	return &item, nil
}

// SetDefault 设为默认支付方式
func (s *PaymentMethodService) SetDefault(ctx context.Context, actor Actor, pmID int64) error {
	return s.store.Transaction(ctx, func(r *repository.Repos) error {
		pm, err := ownedPaymentMethod(r, actor, pmID)
		if err != nil {
			return err
		}
		if err := r.PaymentMethods.SetDefault(actor.UserID, pm.ID); err != nil {
			return err
		}
		return writeAudit(r.Audit, actor, "Set "+pm.Display()+" as default payment method")
	})
}

// Delete 软删除支付方式
func (s *PaymentMethodService) Delete(ctx context.Context, actor Actor, pmID int64) error {
	return s.store.Transaction(ctx, func(r *repository.Repos) error {
		pm, err := ownedPaymentMethod(r, actor, pmID)
		if err != nil {
			return err
		}
		if err := r.PaymentMethods.Deactivate(pm.ID); err != nil {
			return err
		}
		return writeAudit(r.Audit, actor, "Deleted "+pm.Display())
	})
}

func ownedPaymentMethod(r *repository.Repos, actor Actor, pmID int64) (*model.PaymentMethod, error) {
	pm, err := r.PaymentMethods.GetByID(pmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	if pm.UserID != actor.UserID || !pm.IsActive {
		return nil, ErrPaymentMethodNotFound
	}
	return pm, nil
}

// newPaymentMethod 校验请求并生成掩码记录
func newPaymentMethod(userID int64, req *dto.AddPaymentMethodRequest, now time.Time) (*model.PaymentMethod, error) {
	pm := &model.PaymentMethod{
		UserID:    userID,
		Kind:      req.Kind,
		IsDefault: req.IsDefault,
		IsActive:  true,
	}

	switch req.Kind {
	case model.PaymentKindCard:
		number := strings.NewReplacer(" ", "", "-", "").Replace(req.CardNumber)
		if len(number) < 12 || len(number) > 19 || !isDigits(number) || !luhnValid(number) {
			return nil, ErrInvalidPaymentDetails
		}
		if req.Brand == "" || req.ExpiryMonth < 1 || req.ExpiryMonth > 12 || req.ExpiryYear < now.Year() {
			return nil, ErrInvalidPaymentDetails
		}
		month, year := req.ExpiryMonth, req.ExpiryYear
		pm.Brand = req.Brand
		pm.MaskedID = number[len(number)-4:]
		pm.ExpiryMonth = &month
		pm.ExpiryYear = &year
		if pm.Expired(now) {
			return nil, ErrInvalidPaymentDetails
		}
	case model.PaymentKindUPI:
		at := strings.LastIndex(req.UPIID, "@")
		if at <= 0 || at == len(req.UPIID)-1 {
			return nil, ErrInvalidPaymentDetails
		}
		pm.Brand = "upi"
		pm.MaskedID = strings.ToLower(req.UPIID[at:])
	default:
		return nil, ErrInvalidPaymentDetails
	}
	return pm, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func buildPaymentMethodItem(pm *model.PaymentMethod, now time.Time) dto.PaymentMethodItem {
	return dto.PaymentMethodItem{
		ID:          pm.ID,
		Kind:        pm.Kind,
		Brand:       pm.Brand,
		Masked:      pm.MaskedID,
		Display:     pm.Display(),
		ExpiryMonth: pm.ExpiryMonth,
		ExpiryYear:  pm.ExpiryYear,
		IsDefault:   pm.IsDefault,
		Expired:     pm.Expired(now),
	}
}
