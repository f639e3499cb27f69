package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	email := fmt.Sprintf("test_%d@example.com", n)
	user := &model.User{
		Username:     fmt.Sprintf("testuser_%d", n),
		Email:        &email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Role:         model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = &email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// TestPlan 创建测试套餐
func TestPlan(t *testing.T, db *gorm.DB, name string, price string, opts ...func(*model.Plan)) *model.Plan {
	t.Helper()

	plan := &model.Plan{
		Name:    name,
		QuotaGB: 100,
		Price:   decimal.RequireFromString(price),
		Active:  true,
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithPlanInactive 设置套餐下架
func WithPlanInactive() func(*model.Plan) {
	return func(p *model.Plan) {
		p.Active = false
	}
}

// WithQuota 设置流量
func WithQuota(gb int) func(*model.Plan) {
	return func(p *model.Plan) {
		p.QuotaGB = gb
	}
}

// TestDiscount 创建测试折扣，默认有效期覆盖当前时间
func TestDiscount(t *testing.T, db *gorm.DB, code string, discountType string, value string, opts ...func(*model.Discount)) *model.Discount {
	t.Helper()

	now := time.Now()
	discount := &model.Discount{
		Name:          code,
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: decimal.RequireFromString(value),
		ValidFrom:     now.AddDate(0, 0, -30),
		ValidUntil:    now.AddDate(0, 0, 30),
		Active:        true,
	}

	for _, opt := range opts {
		opt(discount)
	}

	if err := db.Create(discount).Error; err != nil {
		t.Fatalf("Failed to create test discount: %v", err)
	}

	return discount
}

// WithUsage 设置使用上限与已用次数
func WithUsage(limit, used int) func(*model.Discount) {
	return func(d *model.Discount) {
		d.UsageLimit = &limit
		d.UsedCount = used
	}
}

// WithMinAmount 设置最低金额
func WithMinAmount(amount string) func(*model.Discount) {
	return func(d *model.Discount) {
		d.MinAmount = decimal.RequireFromString(amount)
	}
}

// WithMaxDiscount 设置最高优惠
func WithMaxDiscount(amount string) func(*model.Discount) {
	return func(d *model.Discount) {
		d.MaxDiscount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
}

// WithValidity 设置有效期
func WithValidity(from, until time.Time) func(*model.Discount) {
	return func(d *model.Discount) {
		d.ValidFrom = from
		d.ValidUntil = until
	}
}

// WithDiscountInactive 设置折扣停用
func WithDiscountInactive() func(*model.Discount) {
	return func(d *model.Discount) {
		d.Active = false
	}
}

// TestCard 创建测试银行卡
func TestCard(t *testing.T, db *gorm.DB, userID int64, brand, lastFour string, isDefault bool) *model.PaymentMethod {
	t.Helper()

	month, year := 12, time.Now().Year()+2
	pm := &model.PaymentMethod{
		UserID:      userID,
		Kind:        model.PaymentKindCard,
		Brand:       brand,
		MaskedID:    lastFour,
		ExpiryMonth: &month,
		ExpiryYear:  &year,
		IsDefault:   isDefault,
		IsActive:    true,
	}

	if err := db.Create(pm).Error; err != nil {
		t.Fatalf("Failed to create test payment method: %v", err)
	}

	return pm
}

// TestUPI 创建测试 UPI
func TestUPI(t *testing.T, db *gorm.DB, userID int64, suffix string) *model.PaymentMethod {
	t.Helper()

	pm := &model.PaymentMethod{
		UserID:   userID,
		Kind:     model.PaymentKindUPI,
		Brand:    "upi",
		MaskedID: suffix,
		IsActive: true,
	}

	if err := db.Create(pm).Error; err != nil {
		t.Fatalf("Failed to create test payment method: %v", err)
	}

	return pm
}

// TestSubscription 创建测试订阅
func TestSubscription(t *testing.T, db *gorm.DB, userID, planID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now()
	sub := &model.Subscription{
		UserID:    userID,
		PlanID:    planID,
		Status:    model.SubscriptionActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, 30),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithSubStatus 设置订阅状态
func WithSubStatus(status string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithPeriod 设置订阅起止时间
func WithPeriod(start, end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.StartDate = start
		s.EndDate = end
	}
}

// TestBilling 创建测试账单
func TestBilling(t *testing.T, db *gorm.DB, sub *model.Subscription, amount string, billedAt time.Time) *model.BillingRecord {
	t.Helper()

	record := &model.BillingRecord{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Amount:         decimal.RequireFromString(amount),
		Status:         model.BillingPaid,
		BilledAt:       billedAt,
		InvoiceNumber:  fmt.Sprintf("INV-TEST-%d", next()),
	}

	if err := db.Create(record).Error; err != nil {
		t.Fatalf("Failed to create test billing record: %v", err)
	}

	return record
}
