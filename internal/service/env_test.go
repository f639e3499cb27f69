package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/sub_go_server/internal/pkg/queue"
	"github.com/qs3c/sub_go_server/internal/repository"
	"github.com/qs3c/sub_go_server/internal/testutil"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event *pubsub.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Events() []*pubsub.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*pubsub.Event(nil), f.events...)
}

type fakeQueue struct {
	mu        sync.Mutex
	jobs      []*queue.ReceiptJob
	err       error
	lengthErr error
}

func (f *fakeQueue) Length(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lengthErr != nil {
		return 0, f.lengthErr
	}
	return int64(len(f.jobs)), nil
}

func (f *fakeQueue) Push(_ context.Context, job *queue.ReceiptJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) Jobs() []*queue.ReceiptJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*queue.ReceiptJob(nil), f.jobs...)
}

type fakeProvider struct {
	reply  string
	err    error
	delay  time.Duration
	calls  int
	prompt string
}

func (f *fakeProvider) Complete(ctx context.Context, _, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

var errProviderDown = errors.New("provider down")

type fakeSigner struct {
	err  error
	keys []string
}

func (f *fakeSigner) GetSignedURL(objectKey string, expireSeconds ...int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, objectKey)
	return fmt.Sprintf("https://oss.example.com/%s?Expires=%d", objectKey, expireSeconds[0]), nil
}

type testEnv struct {
	db        *gorm.DB
	cfg       *config.Config
	store     *repository.Store
	publisher *fakePublisher
	queue     *fakeQueue
	signer    *fakeSigner

	auth      *AuthService
	users     *UserService
	plans     *PlanService
	discounts *DiscountService
	billing   *BillingService
	subs      *SubscriptionService
	payments  *PaymentMethodService
	analytics *AnalyticsService
	recs      *RecommendationService
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key-for-testing",
			ExpireHours: 24,
		},
		Billing: config.BillingConfig{
			TermDays:         30,
			InvoicePrefix:    "INV",
			CurrencySymbol:   "₹",
			ExpiryNoticeDays: 7,
		},
		Chatbot: config.ChatbotConfig{
			TimeoutSeconds: 1,
		},
	}
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()
	store := repository.NewStore(db)
	pub := &fakePublisher{}
	q := &fakeQueue{}
	signer := &fakeSigner{}

	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	pmRepo := repository.NewPaymentMethodRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	env := &testEnv{
		db:        db,
		cfg:       cfg,
		store:     store,
		publisher: pub,
		queue:     q,
		signer:    signer,
	}
	env.auth = NewAuthService(userRepo, auditRepo, cfg)
	env.users = NewUserService(userRepo, auditRepo)
	env.plans = NewPlanService(planRepo, store)
	env.discounts = NewDiscountService(discountRepo, planRepo, store, cfg)
	env.billing = NewBillingService(store, planRepo, pmRepo, billingRepo, pub, q, signer, cfg)
	env.subs = NewSubscriptionService(store, subRepo, env.billing, pub, cfg)
	env.payments = NewPaymentMethodService(store, pmRepo)
	env.analytics = NewAnalyticsService(store, analyticsRepo, userRepo, planRepo, discountRepo, subRepo, auditRepo, q)
	env.recs = NewRecommendationService(env.plans, env.discounts, subRepo, discountRepo, analyticsRepo, cfg)

	return env
}

func actorOf(u *model.User) Actor {
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (e *testEnv) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(m).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}
