package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/sub_go_server/internal/testutil"
)

func TestSubscriptionService_ListMine(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	other := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, "Pro Fiber", "899", testutil.WithQuota(500))

	now := time.Now()
	env.subs.now = func() time.Time { return now }
	testutil.TestSubscription(t, env.db, user.ID, plan.ID, testutil.WithPeriod(now.Add(-24*time.Hour), now.Add(36*time.Hour)))
	testutil.TestSubscription(t, env.db, other.ID, plan.ID)

	items, err := env.subs.ListMine(actorOf(user))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Pro Fiber", items[0].PlanName)
	assert.Equal(t, "899.00", items[0].Price)
	assert.Equal(t, "500GB", items[0].Quota)
	assert.Equal(t, 2, items[0].DaysLeft)
}

func TestSubscriptionService_Cancel(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	sub := testutil.TestSubscription(t, env.db, user.ID, plan.ID)
	ctx := context.Background()

	require.NoError(t, env.subs.Cancel(ctx, actorOf(user), sub.ID))

	var stored model.Subscription
	require.NoError(t, env.db.First(&stored, sub.ID).Error)
	assert.Equal(t, model.SubscriptionCancelled, stored.Status)
	require.Len(t, env.publisher.Events(), 1)
	assert.Equal(t, pubsub.EventCancelled, env.publisher.Events()[0].Type)

	// 重复取消不报错，也不再产生事件和审计
	require.NoError(t, env.subs.Cancel(ctx, actorOf(user), sub.ID))
	assert.Len(t, env.publisher.Events(), 1)
	assert.Equal(t, int64(1), env.count(t, &model.AuditLog{}))
}

func TestSubscriptionService_Cancel_Access(t *testing.T) {
	env := setupEnv(t)
	owner := testutil.TestUser(t, env.db)
	stranger := testutil.TestUser(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	plan := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	sub := testutil.TestSubscription(t, env.db, owner.ID, plan.ID)
	ctx := context.Background()

	err := env.subs.Cancel(ctx, actorOf(stranger), sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = env.subs.Cancel(ctx, actorOf(owner), 9999)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	require.NoError(t, env.subs.Cancel(ctx, actorOf(admin), sub.ID))

	var logs []model.AuditLog
	require.NoError(t, env.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, admin.Username, logs[0].Actor)
}

func TestSubscriptionService_Renew(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	past := time.Now().AddDate(0, -2, 0)
	sub := testutil.TestSubscription(t, env.db, user.ID, plan.ID,
		testutil.WithSubStatus(model.SubscriptionCancelled),
		testutil.WithPeriod(past, past.AddDate(0, 0, 30)))

	now := time.Now()
	env.subs.now = func() time.Time { return now }

	item, err := env.subs.Renew(context.Background(), actorOf(user), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, item.Status)
	assert.Equal(t, 30, item.DaysLeft)

	var stored model.Subscription
	require.NoError(t, env.db.First(&stored, sub.ID).Error)
	assert.Equal(t, model.SubscriptionActive, stored.Status)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), stored.EndDate, time.Second)
	assert.WithinDuration(t, past, stored.StartDate, time.Second)

	// 续订不产生账单
	assert.Equal(t, int64(0), env.count(t, &model.BillingRecord{}))
	require.Len(t, env.publisher.Events(), 1)
	assert.Equal(t, pubsub.EventRenewed, env.publisher.Events()[0].Type)
}

func TestSubscriptionService_Renew_Forbidden(t *testing.T) {
	env := setupEnv(t)
	owner := testutil.TestUser(t, env.db)
	stranger := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	sub := testutil.TestSubscription(t, env.db, owner.ID, plan.ID)

	_, err := env.subs.Renew(context.Background(), actorOf(stranger), sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubscriptionService_Renew_UnknownStatus(t *testing.T) {
	env := setupEnv(t)
	owner := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	sub := testutil.TestSubscription(t, env.db, owner.ID, plan.ID, testutil.WithSubStatus("expired"))

	_, err := env.subs.Renew(context.Background(), actorOf(owner), sub.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var stored model.Subscription
	require.NoError(t, env.db.First(&stored, sub.ID).Error)
	assert.Equal(t, "expired", stored.Status)
	assert.Empty(t, env.publisher.Events())
}

func TestSubscriptionService_ChangePlan_Upgrade(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	basic := testutil.TestPlan(t, env.db, "Basic Fiber", "499")
	pro := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	testutil.TestCard(t, env.db, user.ID, "visa", "4242", true)
	current := testutil.TestSubscription(t, env.db, user.ID, basic.ID)

	resp, err := env.subs.ChangePlan(context.Background(), actorOf(user), current.ID,
		&dto.ChangePlanRequest{NewPlanID: pro.ID}, DirectionUpgrade)
	require.NoError(t, err)

	assert.Equal(t, current.ID, resp.PreviousSubscriptionID)
	assert.Equal(t, DirectionUpgrade, resp.Direction)
	assert.Equal(t, "899.00", resp.FinalAmount)
	assert.Equal(t, "VISA ****4242", resp.PaymentMethod)
	assert.NotEqual(t, current.ID, resp.SubscriptionID)

	var old, fresh model.Subscription
	require.NoError(t, env.db.First(&old, current.ID).Error)
	require.NoError(t, env.db.First(&fresh, resp.SubscriptionID).Error)
	assert.Equal(t, model.SubscriptionCancelled, old.Status)
	assert.Equal(t, model.SubscriptionActive, fresh.Status)
	assert.Equal(t, pro.ID, fresh.PlanID)

	var logs []model.AuditLog
	require.NoError(t, env.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Action, "Changed plan (upgrade) from Basic Fiber to Pro Fiber")

	require.Len(t, env.publisher.Events(), 1)
	assert.Equal(t, pubsub.EventPlanChanged, env.publisher.Events()[0].Type)
	assert.Len(t, env.queue.Jobs(), 1)
}

func TestSubscriptionService_ChangePlan_Errors(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	stranger := testutil.TestUser(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	basic := testutil.TestPlan(t, env.db, "Basic Fiber", "499")
	pro := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	retired := testutil.TestPlan(t, env.db, "Legacy", "999", testutil.WithPlanInactive())
	current := testutil.TestSubscription(t, env.db, user.ID, pro.ID)
	ctx := context.Background()

	tests := []struct {
		name     string
		actor    Actor
		subID    int64
		planID   int64
		expected string
		wantErr  error
	}{
		{"missing subscription", actorOf(user), 9999, basic.ID, "", ErrSubscriptionNotFound},
		{"not the owner", actorOf(stranger), current.ID, basic.ID, "", ErrForbidden},
		{"admin", actorOf(admin), current.ID, basic.ID, "", ErrForbidden},
		{"same plan", actorOf(user), current.ID, pro.ID, "", ErrSamePlan},
		{"inactive plan", actorOf(user), current.ID, retired.ID, "", ErrPlanInactive},
		{"wrong direction", actorOf(user), current.ID, basic.ID, DirectionUpgrade, ErrDirectionMismatch},
		{"no payment method", actorOf(user), current.ID, basic.ID, DirectionDowngrade, ErrNoPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.subs.ChangePlan(ctx, tt.actor, tt.subID, &dto.ChangePlanRequest{NewPlanID: tt.planID}, tt.expected)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var stored model.Subscription
	require.NoError(t, env.db.First(&stored, current.ID).Error)
	assert.Equal(t, model.SubscriptionActive, stored.Status)
}

func TestSubscriptionService_ChangePlan_RollsBackOnStorageError(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	basic := testutil.TestPlan(t, env.db, "Basic Fiber", "499")
	pro := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	testutil.TestCard(t, env.db, user.ID, "visa", "4242", true)
	current := testutil.TestSubscription(t, env.db, user.ID, basic.ID)

	// 审计写入失败，旧订阅的取消也必须回滚
	require.NoError(t, env.db.Migrator().DropTable(&model.AuditLog{}))

	_, err := env.subs.ChangePlan(context.Background(), actorOf(user), current.ID,
		&dto.ChangePlanRequest{NewPlanID: pro.ID}, DirectionUpgrade)
	require.Error(t, err)

	var old model.Subscription
	require.NoError(t, env.db.First(&old, current.ID).Error)
	assert.Equal(t, model.SubscriptionActive, old.Status)
	assert.Equal(t, int64(1), env.count(t, &model.Subscription{}))
	assert.Equal(t, int64(0), env.count(t, &model.BillingRecord{}))
	assert.Empty(t, env.publisher.Events())
	assert.Empty(t, env.queue.Jobs())
}

func TestSubscriptionService_ChangePlan_DowngradeWithExplicitMethod(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	basic := testutil.TestPlan(t, env.db, "Basic Fiber", "499")
	pro := testutil.TestPlan(t, env.db, "Pro Fiber", "899")
	testutil.TestCard(t, env.db, user.ID, "visa", "4242", true)
	upi := testutil.TestUPI(t, env.db, user.ID, "@okaxis")
	current := testutil.TestSubscription(t, env.db, user.ID, pro.ID)

	resp, err := env.subs.ChangePlan(context.Background(), actorOf(user), current.ID,
		&dto.ChangePlanRequest{NewPlanID: basic.ID, PaymentMethodID: &upi.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, DirectionDowngrade, resp.Direction)
	assert.Equal(t, "499.00", resp.FinalAmount)
	assert.Equal(t, "UPI ****@okaxis", resp.PaymentMethod)
}

func TestPlanDirection(t *testing.T) {
	basic := &model.Plan{Price: decimal.RequireFromString("499")}
	pro := &model.Plan{Price: decimal.RequireFromString("899")}
	twin := &model.Plan{Price: decimal.RequireFromString("499.00")}

	assert.Equal(t, DirectionUpgrade, planDirection(basic, pro))
	assert.Equal(t, DirectionDowngrade, planDirection(pro, basic))
	assert.Equal(t, DirectionLateral, planDirection(basic, twin))
	assert.Equal(t, DirectionUpgrade, planDirection(nil, basic))
}
