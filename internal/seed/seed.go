// Package seed 写入演示数据：默认账号、套餐、折扣、支付方式，以及可选的历史订阅
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/repository"
	"github.com/qs3c/sub_go_server/internal/service"
)

const (
	demoAnalyticsUser = "demo_analytics"
	defaultMonths     = 12
)

// Options 控制写入范围
type Options struct {
	// Analytics 为 true 时生成过去 Months 个月的模拟订阅与账单
	Analytics bool
	Months    int
	// Seed 随机种子，0 表示按当前时间
	Seed uint64
}

// Summary 本次新建的记录数，已存在的数据不计入
type Summary struct {
	Users          int `json:"users"`
	Plans          int `json:"plans"`
	Discounts      int `json:"discounts"`
	PaymentMethods int `json:"payment_methods"`
	Subscriptions  int `json:"subscriptions"`
	BillingRecords int `json:"billing_records"`
	Snapshots      int `json:"snapshots"`
}

type userSeed struct {
	username string
	password string
	role     string
}

type planSeed struct {
	name        string
	quotaGB     int
	price       string
	description string
}

var (
	demoUsers = []userSeed{
		{"admin", "admin123", model.RoleAdmin},
		{"user1", "user123", model.RoleUser},
	}
	demoPlans = []planSeed{
		{"Basic Fiber", 100, "499", "Basic broadband 100GB/mo"},
		{"Pro Fiber", 500, "899", "Faster speeds for families"},
		{"Unlimited", 0, "1299", "Unlimited plan (quota guide only)"},
	}
)

type Seeder struct {
	store *repository.Store
	cfg   *config.Config
	now   func() time.Time
}

func New(store *repository.Store, cfg *config.Config) *Seeder {
	return &Seeder{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Run 写入演示数据，可重复执行，已存在的记录保持不变
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{}
	now := s.now().UTC()

	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		users, err := s.seedUsers(r, summary)
		if err != nil {
			return err
		}
		plans, err := s.seedPlans(r, summary)
		if err != nil {
			return err
		}
		if err := s.seedDiscounts(r, now, summary); err != nil {
			return err
		}
		if err := s.seedPaymentMethods(r, users["user1"], now, summary); err != nil {
			return err
		}
		if !opts.Analytics {
			return nil
		}
		return s.seedHistory(r, plans, now, opts, summary)
	})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	log.WithFields(log.Fields{
		"users":         summary.Users,
		"plans":         summary.Plans,
		"discounts":     summary.Discounts,
		"subscriptions": summary.Subscriptions,
	}).Info("seed: demo data written")
	return summary, nil
}

func (s *Seeder) seedUsers(r *repository.Repos, summary *Summary) (map[string]*model.User, error) {
	users := make(map[string]*model.User, len(demoUsers))
	for _, u := range demoUsers {
		user, err := s.ensureUser(r, u, summary)
		if err != nil {
			return nil, err
		}
		users[u.username] = user
	}
	return users, nil
}

func (s *Seeder) ensureUser(r *repository.Repos, u userSeed, summary *Summary) (*model.User, error) {
	existing, err := r.Users.GetByUsername(u.username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := service.HashPassword(u.password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     u.username,
		PasswordHash: hash,
		Role:         u.role,
	}
	if err := r.Users.Create(user); err != nil {
		return nil, err
	}
	summary.Users++
	return user, nil
}

func (s *Seeder) seedPlans(r *repository.Repos, summary *Summary) ([]model.Plan, error) {
	existing, err := r.Plans.List()
	if err != nil {
		return nil, err
	}

	for _, p := range demoPlans {
		if lo.ContainsBy(existing, func(e model.Plan) bool { return e.Name == p.name }) {
			continue
		}
		plan := model.Plan{
			Name:        p.name,
			Description: p.description,
			QuotaGB:     p.quotaGB,
			Price:       decimal.RequireFromString(p.price),
			Active:      true,
		}
		if err := r.Plans.Create(&plan); err != nil {
			return nil, err
		}
		existing = append(existing, plan)
		summary.Plans++
	}

	return lo.Filter(existing, func(p model.Plan, _ int) bool { return p.Active }), nil
}

func (s *Seeder) seedDiscounts(r *repository.Repos, now time.Time, summary *Summary) error {
	discounts := []model.Discount{
		{
			Name:          "Summer Special",
			Code:          "SUMMER20",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(20),
			MinAmount:     decimal.NewFromInt(500),
			ValidFrom:     now,
			ValidUntil:    now.AddDate(0, 0, 30),
			UsageLimit:    lo.ToPtr(100),
			Active:        true,
			Description:   "20% off on all plans for summer season",
		},
		{
			Name:          "New User Welcome",
			Code:          "WELCOME10",
			DiscountType:  model.DiscountFixed,
			DiscountValue: decimal.NewFromInt(100),
			ValidFrom:     now,
			ValidUntil:    now.AddDate(0, 0, 90),
			UsageLimit:    lo.ToPtr(50),
			Active:        true,
			Description:   fmt.Sprintf("%s100 off for new users", s.cfg.Billing.CurrencySymbol),
		},
	}

	for i := range discounts {
		exists, err := r.Discounts.ExistsByCode(discounts[i].Code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := r.Discounts.Create(&discounts[i]); err != nil {
			return err
		}
		summary.Discounts++
	}
	return nil
}

func (s *Seeder) seedPaymentMethods(r *repository.Repos, user *model.User, now time.Time, summary *Summary) error {
	count, err := r.PaymentMethods.CountActiveByUser(user.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	methods := []model.PaymentMethod{
		card(user.ID, "visa", "4242", 12, now.Year()+1, true),
		card(user.ID, "mastercard", "1234", 8, now.Year()+2, false),
		{
			UserID:   user.ID,
			Kind:     model.PaymentKindUPI,
			Brand:    "upi",
			MaskedID: "@okaxis",
			IsActive: true,
		},
	}
	for i := range methods {
		if err := r.PaymentMethods.Create(&methods[i]); err != nil {
			return err
		}
		summary.PaymentMethods++
	}
	return nil
}

func card(userID int64, brand, last4 string, month, year int, isDefault bool) model.PaymentMethod {
	return model.PaymentMethod{
		UserID:      userID,
		Kind:        model.PaymentKindCard,
		Brand:       brand,
		MaskedID:    last4,
		ExpiryMonth: lo.ToPtr(month),
		ExpiryYear:  lo.ToPtr(year),
		IsDefault:   isDefault,
		IsActive:    true,
	}
}

// seedHistory 为演示用户生成每月 2-5 条订阅，有效订阅记为已支付，已取消记为失败
func (s *Seeder) seedHistory(r *repository.Repos, plans []model.Plan, now time.Time, opts Options, summary *Summary) error {
	if len(plans) == 0 {
		return nil
	}
	months := opts.Months
	if months <= 0 {
		months = defaultMonths
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	user, err := s.ensureUser(r, userSeed{demoAnalyticsUser, ulid.Make().String(), model.RoleUser}, summary)
	if err != nil {
		return err
	}

	pm, err := s.demoPaymentMethod(r, user.ID, now, summary)
	if err != nil {
		return err
	}

	var snapshots []model.AnalyticsSnapshot
	for m := 1; m <= months; m++ {
		start := now.AddDate(0, 0, -30*m+rng.IntN(11)-5)
		n := 2 + rng.IntN(4)
		for range n {
			plan := plans[rng.IntN(len(plans))]
			sub := &model.Subscription{
				UserID:    user.ID,
				PlanID:    plan.ID,
				Status:    model.SubscriptionActive,
				StartDate: start,
				EndDate:   start.AddDate(0, 0, 30+rng.IntN(61)),
			}
			billingStatus := model.BillingPaid
			if rng.IntN(2) == 0 {
				sub.Status = model.SubscriptionCancelled
				sub.EndDate = start.AddDate(0, 0, 15+rng.IntN(31))
				billingStatus = model.BillingFailed
			}
			if err := r.Subscriptions.Create(sub); err != nil {
				return err
			}
			summary.Subscriptions++

			record := &model.BillingRecord{
				UserID:          user.ID,
				SubscriptionID:  sub.ID,
				Amount:          plan.Price,
				PaymentMethodID: &pm.ID,
				Status:          billingStatus,
				BilledAt:        start.AddDate(0, 0, 5),
				InvoiceNumber:   fmt.Sprintf("%s-SEED-%s", s.cfg.Billing.InvoicePrefix, ulid.Make().String()),
				Description:     plan.Name + " seeded payment",
			}
			if err := r.Billing.Create(record); err != nil {
				return err
			}
			summary.BillingRecords++
		}

		snapshots = append(snapshots, model.AnalyticsSnapshot{
			MetricName:  model.MetricNewSubscriptions,
			MetricValue: decimal.NewFromInt(int64(n)),
			MetricDate:  time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		})
	}

	if err := r.Analytics.SaveSnapshots(snapshots); err != nil {
		return err
	}
	summary.Snapshots = len(snapshots)

	return r.Audit.Create(&model.AuditLog{
		ActorID: user.ID,
		Actor:   user.Username,
		Action:  fmt.Sprintf("Seeded %d months of analytics data", months),
	})
}

func (s *Seeder) demoPaymentMethod(r *repository.Repos, userID int64, now time.Time, summary *Summary) (*model.PaymentMethod, error) {
	methods, err := r.PaymentMethods.ListActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	if pm, ok := lo.Find(methods, func(m model.PaymentMethod) bool { return m.IsDefault }); ok {
		return &pm, nil
	}

	pm := card(userID, "visa", "0000", 12, now.Year()+4, true)
	if err := r.PaymentMethods.Create(&pm); err != nil {
		return nil, err
	}
	summary.PaymentMethods++
	return &pm, nil
}
