package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/api/middleware"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/pkg/jwt"
	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/sub_go_server/internal/pkg/queue"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/repository"
	"github.com/qs3c/sub_go_server/internal/service"
	"github.com/qs3c/sub_go_server/internal/testutil"
)

const testSecret = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db     *gorm.DB
	cfg    *config.Config
	redis  *redis.Client
	queue  *queue.Queue
	router *gin.Engine

	auth      *service.AuthService
	users     *service.UserService
	plans     *service.PlanService
	discounts *service.DiscountService
	billing   *service.BillingService
	subs      *service.SubscriptionService
	payments  *service.PaymentMethodService
	analytics *service.AnalyticsService
	recs      *service.RecommendationService
	chats     *service.ChatService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: testSecret, ExpireHours: 24},
		Billing: config.BillingConfig{
			TermDays:         30,
			InvoicePrefix:    "INV",
			CurrencySymbol:   "₹",
			ExpiryNoticeDays: 7,
		},
		Chatbot: config.ChatbotConfig{TimeoutSeconds: 1},
	}

	store := repository.NewStore(db)
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	pmRepo := repository.NewPaymentMethodRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	chatRepo := repository.NewChatRepository(db)

	publisher := pubsub.NewPublisher(rdb, pubsub.DefaultChannel)
	receipts := queue.NewQueue(rdb, "queue:receipts")

	env := &testEnv{
		db:     db,
		cfg:    cfg,
		redis:  rdb,
		queue:  receipts,
		router: gin.New(),
	}
	env.auth = service.NewAuthService(userRepo, auditRepo, cfg)
	env.users = service.NewUserService(userRepo, auditRepo)
	env.plans = service.NewPlanService(planRepo, store)
	env.discounts = service.NewDiscountService(discountRepo, planRepo, store, cfg)
	env.billing = service.NewBillingService(store, planRepo, pmRepo, billingRepo, publisher, receipts, nil, cfg)
	env.subs = service.NewSubscriptionService(store, subRepo, env.billing, publisher, cfg)
	env.payments = service.NewPaymentMethodService(store, pmRepo)
	env.analytics = service.NewAnalyticsService(store, analyticsRepo, userRepo, planRepo, discountRepo, subRepo, auditRepo, receipts)
	env.recs = service.NewRecommendationService(env.plans, env.discounts, subRepo, discountRepo, analyticsRepo, cfg)
	env.chats = service.NewChatService(chatRepo, subRepo, env.plans, env.discounts, nil, cfg)

	return env
}

// authed 需要登录的路由组
func (e *testEnv) authed() *gin.RouterGroup {
	return e.router.Group("", middleware.Auth(testSecret))
}

// admin 需要管理员的路由组
func (e *testEnv) admin() *gin.RouterGroup {
	return e.router.Group("", middleware.Auth(testSecret), middleware.RequireAdmin())
}

func tokenFor(t *testing.T, u *model.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(u.ID, u.Username, u.Role, testSecret, 1)
	require.NoError(t, err)
	return token
}

func performRequest(r http.Handler, method, path string, body interface{}, token ...string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if len(token) > 0 {
		req.Header.Set("Authorization", "Bearer "+token[0])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// dataMap 将 data 字段解析为 map
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func dataList(t *testing.T, resp response.Response) []interface{} {
	t.Helper()
	list, ok := resp.Data.([]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return list
}
