package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/sub_go_server/internal/repository"
)

// 换套餐方向
const (
	DirectionUpgrade   = "upgrade"
	DirectionDowngrade = "downgrade"
	DirectionLateral   = "lateral"
)

type SubscriptionService struct {
	store     *repository.Store
	subRepo   *repository.SubscriptionRepository
	billing   *BillingService
	publisher EventPublisher
	cfg       *config.Config
	now       func() time.Time
}

func NewSubscriptionService(store *repository.Store, subRepo *repository.SubscriptionRepository, billing *BillingService, publisher EventPublisher, cfg *config.Config) *SubscriptionService {
	return &SubscriptionService{
		store:     store,
		subRepo:   subRepo,
		billing:   billing,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ListMine 当前用户的订阅，最新在前
func (s *SubscriptionService) ListMine(actor Actor) ([]dto.SubscriptionItem, error) {
	subs, err := s.subRepo.ListByUser(actor.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]dto.SubscriptionItem, 0, len(subs))
	for i := range subs {
		items = append(items, buildSubscriptionItem(&subs[i], now))
	}
	return items, nil
}

// Cancel 取消订阅，本人或管理员；已取消的订阅再次取消视为成功
func (s *SubscriptionService) Cancel(ctx context.Context, actor Actor, subID int64) error {
	var sub *model.Subscription
	changed := false

	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		var err error
		sub, err = s.loadForAccess(r, actor, subID)
		if err != nil {
			return err
		}
		if !sub.CanTransition(model.SubscriptionCancelled) {
			return nil
		}

		if err := r.Subscriptions.UpdateStatus(sub.ID, model.SubscriptionCancelled); err != nil {
			return err
		}
		changed = true
		return writeAudit(r.Audit, actor, fmt.Sprintf("Cancelled subscription %d (%s)", sub.ID, planName(sub)))
	})
	if err != nil {
		return err
	}

	if changed {
		publish(ctx, s.publisher, &pubsub.Event{
			Type:           pubsub.EventCancelled,
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			PlanName:       planName(sub),
		})
	}
	return nil
}

// Renew 续订：状态置为 active，到期时间改为当前时间加一个周期，不产生账单
func (s *SubscriptionService) Renew(ctx context.Context, actor Actor, subID int64) (*dto.SubscriptionItem, error) {
	now := s.now()
	var sub *model.Subscription

	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		var err error
		sub, err = s.loadForAccess(r, actor, subID)
		if err != nil {
			return err
		}
		if !sub.CanTransition(model.SubscriptionActive) {
			return ErrInvalidTransition
		}

		end := now.Add(s.cfg.Billing.Term())
		if err := r.Subscriptions.Renew(sub.ID, end); err != nil {
			return err
		}
		sub.Status = model.SubscriptionActive
		sub.EndDate = end
		return writeAudit(r.Audit, actor, fmt.Sprintf("Renewed subscription %d (%s)", sub.ID, planName(sub)))
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, &pubsub.Event{
		Type:           pubsub.EventRenewed,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PlanName:       planName(sub),
	})

	item := buildSubscriptionItem(sub, now)
	return &item, nil
}

// ChangePlan 更换套餐：取消原订阅并按新套餐原价重新扣费，仅限本人。
// expected 非空时要求方向一致（upgrade/downgrade 接口）。
func (s *SubscriptionService) ChangePlan(ctx context.Context, actor Actor, subID int64, req *dto.ChangePlanRequest, expected string) (*dto.ChangePlanResponse, error) {
	current, err := s.subRepo.GetByID(subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if current.UserID != actor.UserID || actor.Role != model.RoleUser {
		return nil, ErrForbidden
	}
	if current.PlanID == req.NewPlanID {
		return nil, ErrSamePlan
	}

	plan, err := s.billing.activePlan(req.NewPlanID)
	if err != nil {
		return nil, err
	}

	direction := planDirection(current.Plan, plan)
	if expected != "" && direction != expected {
		return nil, ErrDirectionMismatch
	}

	var pm *model.PaymentMethod
	if req.PaymentMethodID != nil {
		pm, err = s.billing.resolvePaymentMethod(actor.UserID, req.PaymentMethodID)
	} else {
		pm, err = s.billing.defaultPaymentMethod(actor.UserID)
	}
	if err != nil {
		return nil, err
	}

	in := &chargeInput{
		actor:         actor,
		plan:          plan,
		paymentMethod: pm,
		now:           s.now(),
		action:        fmt.Sprintf("Changed plan (%s) from %s to", direction, planName(current)),
	}

	var outcome *dto.BillingOutcome
	err = s.store.Transaction(ctx, func(r *repository.Repos) error {
		if err := r.Subscriptions.UpdateStatus(current.ID, model.SubscriptionCancelled); err != nil {
			return err
		}
		var err error
		outcome, err = s.billing.chargeTx(r, in)
		return err
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id":         actor.UserID,
			"subscription_id": current.ID,
			"plan_id":         plan.ID,
		}).Error("billing: plan change rolled back")
		return nil, err
	}

	s.billing.afterCharge(ctx, actor, outcome, pubsub.EventPlanChanged)

	return &dto.ChangePlanResponse{
		PreviousSubscriptionID: current.ID,
		Direction:              direction,
		BillingOutcome:         outcome,
	}, nil
}

// loadForAccess 读取订阅并校验本人或管理员
func (s *SubscriptionService) loadForAccess(r *repository.Repos, actor Actor, subID int64) (*model.Subscription, error) {
	sub, err := r.Subscriptions.GetByID(subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	if !actor.CanAccess(sub.UserID) {
		return nil, ErrForbidden
	}
	return sub, nil
}

func planDirection(from, to *model.Plan) string {
	if from == nil {
		return DirectionUpgrade
	}
	switch to.Price.Cmp(from.Price) {
	case 1:
		return DirectionUpgrade
	case -1:
		return DirectionDowngrade
	default:
		return DirectionLateral
	}
}

func planName(sub *model.Subscription) string {
	if sub.Plan == nil {
		return fmt.Sprintf("plan %d", sub.PlanID)
	}
	return sub.Plan.Name
}

func buildSubscriptionItem(sub *model.Subscription, now time.Time) dto.SubscriptionItem {
	item := dto.SubscriptionItem{
		ID:        sub.ID,
		PlanID:    sub.PlanID,
		PlanName:  planName(sub),
		Status:    sub.Status,
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
	}
	if sub.Plan != nil {
		item.Price = money(sub.Plan.Price)
		item.Quota = quotaLabel(sub.Plan)
	}
	if sub.IsActive() && sub.EndDate.After(now) {
		item.DaysLeft = int(math.Ceil(sub.EndDate.Sub(now).Hours() / 24))
	}
	return item
}
