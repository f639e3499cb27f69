package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/testutil"
)

func TestSubscriptionRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, "Basic Fiber 100GB", "499")

	now := time.Now()
	sub := &model.Subscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		Status:    model.SubscriptionActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, 30),
	}
	require.NoError(t, repo.Create(sub))

	found, err := repo.GetByID(sub.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Plan)
	assert.Equal(t, "Basic Fiber 100GB", found.Plan.Name)
	assert.True(t, found.EndDate.After(found.StartDate))
}

func TestSubscriptionRepository_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, "Basic", "499")

	now := time.Now()
	older := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithPeriod(now.AddDate(0, -2, 0), now.AddDate(0, -1, 0)))
	newer := testutil.TestSubscription(t, db, user.ID, plan.ID)
	testutil.TestSubscription(t, db, other.ID, plan.ID)

	subs, err := repo.ListByUser(user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, newer.ID, subs[0].ID)
	assert.Equal(t, older.ID, subs[1].ID)
}

func TestSubscriptionRepository_StatusAndRenew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, "Basic", "499")
	sub := testutil.TestSubscription(t, db, user.ID, plan.ID)

	require.NoError(t, repo.UpdateStatus(sub.ID, model.SubscriptionCancelled))
	count, err := repo.CountByStatus(model.SubscriptionCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	end := time.Now().AddDate(0, 0, 30)
	require.NoError(t, repo.Renew(sub.ID, end))

	found, err := repo.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, found.Status)
	assert.WithinDuration(t, end, found.EndDate, time.Second)
}

func TestSubscriptionRepository_ListExpiring(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, "Basic", "499")

	now := time.Now()
	soon := testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithPeriod(now.AddDate(0, 0, -25), now.AddDate(0, 0, 5)))
	testutil.TestSubscription(t, db, user.ID, plan.ID, testutil.WithPeriod(now, now.AddDate(0, 0, 30)))
	testutil.TestSubscription(t, db, user.ID, plan.ID,
		testutil.WithPeriod(now.AddDate(0, 0, -25), now.AddDate(0, 0, 3)),
		testutil.WithSubStatus(model.SubscriptionCancelled))

	subs, err := repo.ListExpiring(user.ID, now, now.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, soon.ID, subs[0].ID)
}
