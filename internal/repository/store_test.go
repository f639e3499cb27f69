package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/testutil"
)

func TestStore_TransactionCommit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := NewStore(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, "Basic", "499")

	var subID int64
	err := store.Transaction(context.Background(), func(r *Repos) error {
		now := time.Now()
		sub := &model.Subscription{UserID: user.ID, PlanID: plan.ID, Status: model.SubscriptionActive, StartDate: now, EndDate: now.AddDate(0, 0, 30)}
		if err := r.Subscriptions.Create(sub); err != nil {
			return err
		}
		subID = sub.ID
		return r.Billing.Create(&model.BillingRecord{
			UserID: user.ID, SubscriptionID: sub.ID, Amount: decimal.NewFromInt(499),
			Status: model.BillingPaid, BilledAt: now, InvoiceNumber: "INV-1",
		})
	})
	require.NoError(t, err)

	records, err := NewBillingRepository(db).ListBySubscription(subID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestStore_TransactionRollback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := NewStore(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, "Basic", "499")
	sub := testutil.TestSubscription(t, db, user.ID, plan.ID)
	testutil.TestBilling(t, db, sub, "499", time.Now())

	var existing model.BillingRecord
	require.NoError(t, db.First(&existing).Error)

	err := store.Transaction(context.Background(), func(r *Repos) error {
		now := time.Now()
		newSub := &model.Subscription{UserID: user.ID, PlanID: plan.ID, Status: model.SubscriptionActive, StartDate: now, EndDate: now.AddDate(0, 0, 30)}
		if err := r.Subscriptions.Create(newSub); err != nil {
			return err
		}
		// 发票号冲突导致整个事务回滚
		return r.Billing.Create(&model.BillingRecord{
			UserID: user.ID, SubscriptionID: newSub.ID, Amount: decimal.NewFromInt(499),
			Status: model.BillingPaid, BilledAt: now, InvoiceNumber: existing.InvoiceNumber,
		})
	})
	require.Error(t, err)

	var count int64
	db.Model(&model.Subscription{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStore_TransactionCallbackError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := NewStore(db)
	boom := errors.New("boom")

	err := store.Transaction(context.Background(), func(r *Repos) error {
		if err := r.Audit.Create(&model.AuditLog{Actor: "tester", Action: "noop"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	logs, err := NewAuditRepository(db).ListRecent(10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

// 真实 MySQL 上的事务行为，需设置 TEST_DATABASE_DSN
func TestStore_TransactionRollback_MySQL(t *testing.T) {
	db := testutil.SetupTestDBWithMySQL(t)
	testutil.TruncateTables(t, db)
	t.Cleanup(func() {
		testutil.TruncateTables(t, db)
		testutil.CleanupTestDB(t, db)
	})

	store := NewStore(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, "Basic", "499")

	err := store.Transaction(context.Background(), func(r *Repos) error {
		now := time.Now()
		sub := &model.Subscription{UserID: user.ID, PlanID: plan.ID, Status: model.SubscriptionActive, StartDate: now, EndDate: now.AddDate(0, 0, 30)}
		if err := r.Subscriptions.Create(sub); err != nil {
			return err
		}
		return errors.New("payment declined")
	})
	require.Error(t, err)

	subs, err := NewSubscriptionRepository(db).ListByUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
