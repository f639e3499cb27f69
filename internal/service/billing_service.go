package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/sub_go_server/internal/pkg/queue"
	"github.com/qs3c/sub_go_server/internal/pricing"
	"github.com/qs3c/sub_go_server/internal/repository"
)

type BillingService struct {
	store       *repository.Store
	planRepo    *repository.PlanRepository
	pmRepo      *repository.PaymentMethodRepository
	billingRepo *repository.BillingRepository
	publisher   EventPublisher
	receipts    ReceiptQueue
	signer      ReceiptSigner
	cfg         *config.Config
	now         func() time.Time
}

// receiptURLTTL 回执下载链接有效期（秒）
const receiptURLTTL int64 = 3600

func NewBillingService(
	store *repository.Store,
	planRepo *repository.PlanRepository,
	pmRepo *repository.PaymentMethodRepository,
	billingRepo *repository.BillingRepository,
	publisher EventPublisher,
	receipts ReceiptQueue,
	signer ReceiptSigner,
	cfg *config.Config,
) *BillingService {
	return &BillingService{
		store:       store,
		planRepo:    planRepo,
		pmRepo:      pmRepo,
		billingRepo: billingRepo,
		publisher:   publisher,
		receipts:    receipts,
		signer:      signer,
		cfg:         cfg,
		now:         time.Now,
	}
}

// chargeInput 一次扣费所需的已校验输入
type chargeInput struct {
	actor         Actor
	plan          *model.Plan
	paymentMethod *model.PaymentMethod
	discountCode  string
	now           time.Time
	action        string // 审计描述前缀
}

// Charge 订阅下单：校验前置条件后在同一事务内创建订阅、账单、折扣使用记录与审计日志。
// 折扣被拒绝不会阻止下单，拒绝原因记录在结果中，按原价扣费。
func (s *BillingService) Charge(ctx context.Context, actor Actor, req *dto.ChargeRequest) (*dto.BillingOutcome, error) {
	if actor.Role != model.RoleUser {
		return nil, ErrForbidden
	}

	pm, err := s.resolvePaymentMethod(actor.UserID, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	plan, err := s.activePlan(req.PlanID)
	if err != nil {
		return nil, err
	}

	in := &chargeInput{
		actor:         actor,
		plan:          plan,
		paymentMethod: pm,
		discountCode:  req.DiscountCode,
		now:           s.now(),
		action:        "Subscribed to",
	}

	var outcome *dto.BillingOutcome
	err = s.store.Transaction(ctx, func(r *repository.Repos) error {
		var err error
		outcome, err = s.chargeTx(r, in)
		return err
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": actor.UserID,
			"plan_id": plan.ID,
		}).Error("billing: charge rolled back")
		return nil, err
	}

	s.afterCharge(ctx, actor, outcome, pubsub.EventSubscribed)
	return outcome, nil
}

// chargeTx 在事务 r 内完成扣费，任一步失败由调用方回滚
func (s *BillingService) chargeTx(r *repository.Repos, in *chargeInput) (*dto.BillingOutcome, error) {
	price := in.plan.Price
	discountAmount := decimal.Zero

	outcome := &dto.BillingOutcome{
		PlanName:       in.plan.Name,
		OriginalAmount: money(price),
		PaymentMethod:  in.paymentMethod.Display(),
	}

	var redeemed *model.Discount
	// 空白折扣码视为未填写
	if code := pricing.NormalizeCode(in.discountCode); code != "" {
		outcome.DiscountCode = code

		discount, err := r.Discounts.GetByCode(code)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		result, rejection := pricing.Evaluate(discount, price, in.now)
		switch {
		case rejection != nil:
			if rejection.Code == "" {
				rejection.Code = code
			}
			outcome.DiscountRejection = rejection
		case result.Amount.IsPositive():
			if err := r.Discounts.Redeem(discount.ID); err != nil {
				if !errors.Is(err, repository.ErrDiscountExhausted) {
					return nil, err
				}
				// 并发下名额被抢光
				outcome.DiscountRejection = pricing.NewRejection(pricing.LimitExceeded, code)
			} else {
				redeemed = discount
				discountAmount = result.Amount
			}
		}
	}

	final := pricing.FinalAmount(price, discountAmount)
	outcome.DiscountAmount = money(discountAmount)
	outcome.FinalAmount = money(final)
	outcome.DiscountApplied = redeemed != nil

	sub := &model.Subscription{
		UserID:    in.actor.UserID,
		PlanID:    in.plan.ID,
		Status:    model.SubscriptionActive,
		StartDate: in.now,
		EndDate:   in.now.Add(s.cfg.Billing.Term()),
	}
	if err := r.Subscriptions.Create(sub); err != nil {
		return nil, err
	}

	pmID := in.paymentMethod.ID
	record := &model.BillingRecord{
		UserID:          in.actor.UserID,
		SubscriptionID:  sub.ID,
		Amount:          final,
		PaymentMethodID: &pmID,
		Status:          model.BillingPaid,
		BilledAt:        in.now,
		InvoiceNumber:   s.invoiceNumber(sub.ID),
		Description:     in.plan.Name + " subscription payment",
	}
	if err := r.Billing.Create(record); err != nil {
		return nil, err
	}

	if redeemed != nil {
		usage := &model.DiscountUsage{
			DiscountID:     redeemed.ID,
			UserID:         in.actor.UserID,
			SubscriptionID: sub.ID,
			AmountSaved:    discountAmount,
			UsedAt:         in.now,
		}
		if err := r.Discounts.CreateUsage(usage); err != nil {
			return nil, err
		}
	}

	action := fmt.Sprintf("%s %s for %s%s via %s", in.action, in.plan.Name,
		s.cfg.Billing.CurrencySymbol, outcome.FinalAmount, outcome.PaymentMethod)
	if redeemed != nil {
		action += " with discount " + redeemed.Code
	}
	if err := writeAudit(r.Audit, in.actor, action); err != nil {
		return nil, err
	}

	outcome.SubscriptionID = sub.ID
	outcome.BillingRecordID = record.ID
	outcome.InvoiceNumber = record.InvoiceNumber
	outcome.StartDate = sub.StartDate
	outcome.EndDate = sub.EndDate
	return outcome, nil
}

// invoiceNumber 订阅 ID 加 ULID，全局唯一
func (s *BillingService) invoiceNumber(subscriptionID int64) string {
	prefix := s.cfg.Billing.InvoicePrefix
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%d-%s", prefix, subscriptionID, ulid.Make().String())
}

// afterCharge 提交后推送事件并投递回执任务，失败只记日志
func (s *BillingService) afterCharge(ctx context.Context, actor Actor, outcome *dto.BillingOutcome, eventType string) {
	publish(ctx, s.publisher, &pubsub.Event{
		Type:           eventType,
		UserID:         actor.UserID,
		SubscriptionID: outcome.SubscriptionID,
		PlanName:       outcome.PlanName,
		Amount:         outcome.FinalAmount,
		InvoiceNumber:  outcome.InvoiceNumber,
	})

	if s.receipts == nil {
		return
	}
	job := &queue.ReceiptJob{
		BillingRecordID: outcome.BillingRecordID,
		UserID:          actor.UserID,
		InvoiceNumber:   outcome.InvoiceNumber,
		EnqueuedAt:      s.now(),
	}
	if err := s.receipts.Push(ctx, job); err != nil {
		log.WithError(err).WithField("invoice", outcome.InvoiceNumber).Warn("billing: enqueue receipt failed")
	}
}

// resolvePaymentMethod 校验指定的支付方式属于用户且可用
func (s *BillingService) resolvePaymentMethod(userID int64, pmID *int64) (*model.PaymentMethod, error) {
	count, err := s.pmRepo.CountActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	if count == 0 || pmID == nil {
		return nil, ErrNoPaymentMethod
	}

	pm, err := s.pmRepo.GetByID(*pmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPaymentMethod
		}
		return nil, err
	}
	if pm.UserID != userID || !pm.IsActive || pm.Expired(s.now()) {
		return nil, ErrInvalidPaymentMethod
	}
	return pm, nil
}

// defaultPaymentMethod 默认支付方式，否则最近添加的可用支付方式
func (s *BillingService) defaultPaymentMethod(userID int64) (*model.PaymentMethod, error) {
	pms, err := s.pmRepo.ListActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range pms {
		if !pms[i].Expired(now) {
			return &pms[i], nil
		}
	}
	return nil, ErrNoPaymentMethod
}

func (s *BillingService) activePlan(planID int64) (*model.Plan, error) {
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
	return plan, nil
}

// History 用户账单记录，最新在前
func (s *BillingService) History(actor Actor) ([]dto.BillingItem, error) {
	records, err := s.billingRepo.ListByUser(actor.UserID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.BillingItem, 0, len(records))
	for _, rec := range records {
		item := dto.BillingItem{
			ID:             rec.ID,
			SubscriptionID: rec.SubscriptionID,
			InvoiceNumber:  rec.InvoiceNumber,
			Amount:         money(rec.Amount),
			Status:         rec.Status,
			BilledAt:       rec.BilledAt,
			Description:    rec.Description,
		}
		if rec.Subscription != nil && rec.Subscription.Plan != nil {
			item.PlanName = rec.Subscription.Plan.Name
		}
		if rec.PaymentMethod != nil {
			item.PaymentMethod = rec.PaymentMethod.Display()
		}
		if rec.ReceiptKey != "" && s.signer != nil {
			url, err := s.signer.GetSignedURL(rec.ReceiptKey, receiptURLTTL)
			if err != nil {
				log.WithError(err).WithField("billing_id", rec.ID).Warn("billing: failed to sign receipt url")
			} else {
				item.ReceiptURL = url
			}
		}
		items = append(items, item)
	}
	return items, nil
}
