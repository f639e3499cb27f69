package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pricing"
	"github.com/qs3c/sub_go_server/internal/testutil"
)

func TestDiscountService_Preview(t *testing.T) {
	env := setupEnv(t)
	plan := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	d := testutil.TestDiscount(t, env.db, "SUMMER20", model.DiscountPercentage, "20",
		testutil.WithUsage(100, 5), testutil.WithMinAmount("500"))

	resp, err := env.discounts.Preview(context.Background(), "summer20", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "SUMMER20", resp.Code)
	assert.Equal(t, "Pro Fiber", resp.PlanName)
	assert.Equal(t, "899.00", resp.OriginalAmount)
	assert.Equal(t, "179.80", resp.DiscountAmount)
	assert.Equal(t, "719.20", resp.FinalAmount)

	// 预览不消耗名额
	var stored model.Discount
	require.NoError(t, env.db.First(&stored, d.ID).Error)
	assert.Equal(t, 5, stored.UsedCount)
	assert.Equal(t, int64(0), env.count(t, &model.DiscountUsage{}))
	assert.Equal(t, int64(0), env.count(t, &model.AuditLog{}))
}

func TestDiscountService_Preview_Rejections(t *testing.T) {
	env := setupEnv(t)
	basic := testutil.TestPlan(t, env.db, "Basic Fiber", "499")
	now := time.Now()
	testutil.TestDiscount(t, env.db, "SUMMER20", model.DiscountPercentage, "20", testutil.WithMinAmount("500"))
	testutil.TestDiscount(t, env.db, "GONE", model.DiscountFixed, "50", testutil.WithValidity(now.AddDate(0, -2, 0), now.AddDate(0, -1, 0)))
	testutil.TestDiscount(t, env.db, "SOON", model.DiscountFixed, "50", testutil.WithValidity(now.AddDate(0, 0, 5), now.AddDate(0, 1, 0)))
	testutil.TestDiscount(t, env.db, "FULL", model.DiscountFixed, "50", testutil.WithUsage(2, 2))
	testutil.TestDiscount(t, env.db, "OFF", model.DiscountFixed, "50", testutil.WithDiscountInactive())

	tests := []struct {
		code   string
		reason pricing.Reason
	}{
		{"nope", pricing.InvalidCode},
		{"", pricing.InvalidCode},
		{"off", pricing.InvalidCode},
		{"soon", pricing.NotYetValid},
		{"gone", pricing.Expired},
		{"full", pricing.LimitExceeded},
		{"summer20", pricing.MinimumNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := env.discounts.Preview(context.Background(), tt.code, basic.ID)
			var rejection *pricing.Rejection
			require.True(t, errors.As(err, &rejection))
			assert.Equal(t, tt.reason, rejection.Reason)
			assert.Equal(t, pricing.NormalizeCode(tt.code), rejection.Code)
		})
	}
}

func TestDiscountService_Preview_PlanErrors(t *testing.T) {
	env := setupEnv(t)
	retired := testutil.TestPlan(t, env.db, "Legacy", "199", testutil.WithPlanInactive())

	_, err := env.discounts.Preview(context.Background(), "X", 9999)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = env.discounts.Preview(context.Background(), "X", retired.ID)
	assert.ErrorIs(t, err, ErrPlanInactive)
}

func TestDiscountService_Offers(t *testing.T) {
	env := setupEnv(t)
	now := time.Now()
	testutil.TestDiscount(t, env.db, "LIVE", model.DiscountPercentage, "15")
	testutil.TestDiscount(t, env.db, "OFF", model.DiscountFixed, "50", testutil.WithDiscountInactive())
	testutil.TestDiscount(t, env.db, "GONE", model.DiscountFixed, "50", testutil.WithValidity(now.AddDate(0, -2, 0), now.AddDate(0, -1, 0)))

	offers, err := env.discounts.Offers()
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "LIVE", offers[0].Code)
	assert.Equal(t, "15%", offers[0].Label)
}

func TestDiscountService_Create(t *testing.T) {
	env := setupEnv(t)
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	now := time.Now()
	limit := 50
	maxOff := "150"

	item, err := env.discounts.Create(context.Background(), actorOf(admin), &dto.CreateDiscountRequest{
		Name:          "Welcome",
		Code:          " welcome10 ",
		DiscountType:  model.DiscountFixed,
		DiscountValue: "100",
		MaxDiscount:   &maxOff,
		ValidFrom:     now,
		ValidUntil:    now.AddDate(0, 1, 0),
		UsageLimit:    &limit,
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", item.Code)
	assert.Equal(t, "₹100", item.Label)
	assert.Equal(t, "100.00", item.DiscountValue)
	require.NotNil(t, item.Remaining)
	assert.Equal(t, 50, *item.Remaining)
	assert.True(t, item.Active)

	var logs []model.AuditLog
	require.NoError(t, env.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "Created discount Welcome", logs[0].Action)

	_, err = env.discounts.Create(context.Background(), actorOf(admin), &dto.CreateDiscountRequest{
		Name:          "Duplicate",
		Code:          "WELCOME10",
		DiscountType:  model.DiscountFixed,
		DiscountValue: "10",
		ValidFrom:     now,
		ValidUntil:    now.AddDate(0, 1, 0),
	})
	assert.ErrorIs(t, err, ErrDiscountCodeExists)
}

func TestDiscountService_Create_Validation(t *testing.T) {
	env := setupEnv(t)
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	user := testutil.TestUser(t, env.db)
	now := time.Now()

	valid := func() *dto.CreateDiscountRequest {
		return &dto.CreateDiscountRequest{
			Name:          "Promo",
			Code:          "PROMO",
			DiscountType:  model.DiscountPercentage,
			DiscountValue: "10",
			ValidFrom:     now,
			ValidUntil:    now.AddDate(0, 1, 0),
		}
	}

	tests := []struct {
		name    string
		actor   Actor
		mutate  func(*dto.CreateDiscountRequest)
		wantErr error
	}{
		{"not admin", actorOf(user), func(*dto.CreateDiscountRequest) {}, ErrForbidden},
		{"percentage above 100", actorOf(admin), func(r *dto.CreateDiscountRequest) { r.DiscountValue = "120" }, ErrInvalidAmount},
		{"zero value", actorOf(admin), func(r *dto.CreateDiscountRequest) { r.DiscountValue = "0" }, ErrInvalidAmount},
		{"negative value", actorOf(admin), func(r *dto.CreateDiscountRequest) { r.DiscountValue = "-5" }, ErrInvalidAmount},
		{"garbage value", actorOf(admin), func(r *dto.CreateDiscountRequest) { r.DiscountValue = "ten" }, ErrInvalidAmount},
		{"negative minimum", actorOf(admin), func(r *dto.CreateDiscountRequest) { r.MinAmount = "-1" }, ErrInvalidAmount},
		{"inverted validity", actorOf(admin), func(r *dto.CreateDiscountRequest) { r.ValidUntil = now.AddDate(0, 0, -1) }, ErrInvalidValidity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			_, err := env.discounts.Create(context.Background(), tt.actor, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, int64(0), env.count(t, &model.Discount{}))
}

func TestDiscountService_UpdateAndToggle(t *testing.T) {
	env := setupEnv(t)
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	d := testutil.TestDiscount(t, env.db, "SUMMER20", model.DiscountPercentage, "20")
	ctx := context.Background()

	name := "Summer Sale"
	value := "25"
	maxOff := "200"
	item, err := env.discounts.Update(ctx, actorOf(admin), d.ID, &dto.UpdateDiscountRequest{
		Name:          &name,
		DiscountValue: &value,
		MaxDiscount:   &maxOff,
	})
	require.NoError(t, err)
	assert.Equal(t, "Summer Sale", item.Name)
	assert.Equal(t, "SUMMER20", item.Code)
	assert.Equal(t, "25.00", item.DiscountValue)
	require.NotNil(t, item.MaxDiscount)
	assert.Equal(t, "200.00", *item.MaxDiscount)

	var stored model.Discount
	require.NoError(t, env.db.First(&stored, d.ID).Error)
	assert.Equal(t, "Summer Sale", stored.Name)
	assert.True(t, stored.MaxDiscount.Valid)

	toggled, err := env.discounts.Toggle(ctx, actorOf(admin), d.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	toggled, err = env.discounts.Toggle(ctx, actorOf(admin), d.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Active)

	var logs []model.AuditLog
	require.NoError(t, env.db.Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, "Edited discount Summer Sale", logs[0].Action)
	assert.Equal(t, "Toggled discount Summer Sale to inactive", logs[1].Action)
	assert.Equal(t, "Toggled discount Summer Sale to active", logs[2].Action)

	_, err = env.discounts.Toggle(ctx, actorOf(admin), 9999)
	assert.ErrorIs(t, err, ErrDiscountNotFound)

	bad := "150"
	_, err = env.discounts.Update(ctx, actorOf(admin), d.ID, &dto.UpdateDiscountRequest{DiscountValue: &bad})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDiscountService_List(t *testing.T) {
	env := setupEnv(t)
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	user := testutil.TestUser(t, env.db)
	testutil.TestDiscount(t, env.db, "A", model.DiscountFixed, "10")
	testutil.TestDiscount(t, env.db, "B", model.DiscountFixed, "10", testutil.WithDiscountInactive())

	items, err := env.discounts.List(actorOf(admin))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = env.discounts.List(actorOf(user))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDiscountService_Usages(t *testing.T) {
	env := setupEnv(t)
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	user := testutil.TestUser(t, env.db)
	d := testutil.TestDiscount(t, env.db, "SAVE50", model.DiscountFixed, "50")

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.Create(&model.DiscountUsage{
			DiscountID:     d.ID,
			UserID:         user.ID,
			SubscriptionID: int64(i + 1),
			AmountSaved:    decimal.NewFromInt(50),
			UsedAt:         base.AddDate(0, 0, i),
		}).Error)
	}

	items, total, err := env.discounts.Usages(actorOf(admin), d.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].SubscriptionID)
	assert.Equal(t, "50.00", items[0].AmountSaved)

	items, _, err = env.discounts.Usages(actorOf(admin), d.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].SubscriptionID)

	_, _, err = env.discounts.Usages(actorOf(user), d.ID, 1, 20)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = env.discounts.Usages(actorOf(admin), 999, 1, 20)
	assert.ErrorIs(t, err, ErrDiscountNotFound)
}
