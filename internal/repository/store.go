package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos 同一连接（或事务）上的仓储集合
type Repos struct {
	Users          *UserRepository
	Plans          *PlanRepository
	Discounts      *DiscountRepository
	Subscriptions  *SubscriptionRepository
	PaymentMethods *PaymentMethodRepository
	Billing        *BillingRepository
	Audit          *AuditRepository
	Analytics      *AnalyticsRepository
}

func newRepos(db *gorm.DB) *Repos {
	return &Repos{
		Users:          NewUserRepository(db),
		Plans:          NewPlanRepository(db),
		Discounts:      NewDiscountRepository(db),
		Subscriptions:  NewSubscriptionRepository(db),
		PaymentMethods: NewPaymentMethodRepository(db),
		Billing:        NewBillingRepository(db),
		Audit:          NewAuditRepository(db),
		Analytics:      NewAnalyticsRepository(db),
	}
}

// Store 负责开启事务，回调内所有写入一起提交或回滚
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction 在事务中执行 fn，fn 返回错误时全部回滚
func (s *Store) Transaction(ctx context.Context, fn func(r *Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepos(tx))
	})
}
