package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/api"
	"github.com/qs3c/sub_go_server/internal/api/handler"
	"github.com/qs3c/sub_go_server/internal/database"
	"github.com/qs3c/sub_go_server/internal/pkg/cron"
	"github.com/qs3c/sub_go_server/internal/pkg/llm"
	"github.com/qs3c/sub_go_server/internal/pkg/logger"
	"github.com/qs3c/sub_go_server/internal/pkg/oss"
	"github.com/qs3c/sub_go_server/internal/pkg/pubsub"
	"github.com/qs3c/sub_go_server/internal/pkg/queue"
	"github.com/qs3c/sub_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/sub_go_server/internal/pkg/ws"
	"github.com/qs3c/sub_go_server/internal/repository"
	"github.com/qs3c/sub_go_server/internal/seed"
	"github.com/qs3c/sub_go_server/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log)

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.WithField("driver", cfg.Database.Driver).Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Info("Redis connected")

	// 初始化 Queue 和 Pub/Sub
	receiptQueue := queue.NewQueue(rdb, cfg.Queue.ReceiptQueue)
	publisher := pubsub.NewPublisher(rdb, cfg.Queue.EventChannel)

	// 初始化 Repository
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

	// 外部聊天模型（可选）
	var provider service.ChatProvider
	llmProvider, err := llm.New(cfg.Chatbot)
	switch {
	case err == nil:
		provider = llmProvider
		log.WithField("provider", llmProvider.Name()).Info("Chat provider configured")
	case errors.Is(err, llm.ErrNotConfigured):
		log.Info("Chat provider not configured, using local replies")
	default:
		log.WithError(err).Warn("Failed to init chat provider")
	}

	// 初始化 OSS（可选），用于签发回执下载链接
	var signer service.ReceiptSigner
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.WithError(err).Warn("Failed to init OSS client")
		} else {
			signer = ossClient
			log.Info("OSS client initialized")
		}
	}

	// 初始化 Service
	authService := service.NewAuthService(userRepo, auditRepo, cfg)
	userService := service.NewUserService(userRepo, auditRepo)
	planService := service.NewPlanService(planRepo, store)
	discountService := service.NewDiscountService(discountRepo, planRepo, store, cfg)
	billingService := service.NewBillingService(store, planRepo, pmRepo, billingRepo, publisher, receiptQueue, signer, cfg)
	subService := service.NewSubscriptionService(store, subRepo, billingService, publisher, cfg)
	pmService := service.NewPaymentMethodService(store, pmRepo)
	chatService := service.NewChatService(chatRepo, subRepo, planService, discountService, provider, cfg)
	analyticsService := service.NewAnalyticsService(store, analyticsRepo, userRepo, planRepo, discountRepo, subRepo, auditRepo, receiptQueue)
	recService := service.NewRecommendationService(planService, discountService, subRepo, discountRepo, analyticsRepo, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket Hub，订阅账单事件推送给在线用户
	wsHub := ws.NewHub()
	go func() {
		if err := wsHub.Bridge(ctx, pubsub.NewSubscriber(rdb, cfg.Queue.EventChannel)); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("Event bridge stopped")
		}
	}()
	log.Info("WebSocket hub started")

	// 每日统计快照
	cronService := cron.NewService(analyticsService, cfg.Cron.SnapshotInterval)
	cronService.Start()
	defer cronService.Stop()
	go func() {
		if err := cronService.RunNow(); err != nil {
			log.WithError(err).Warn("Initial analytics snapshot failed")
		}
	}()

	// 初始化 Router
	router := api.NewRouter(api.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		User:          handler.NewUserHandler(userService, recService),
		Plan:          handler.NewPlanHandler(planService),
		Discount:      handler.NewDiscountHandler(discountService),
		Subscription:  handler.NewSubscriptionHandler(subService, billingService),
		PaymentMethod: handler.NewPaymentMethodHandler(pmService),
		Chat:          handler.NewChatHandler(chatService),
		Analytics:     handler.NewAnalyticsHandler(analyticsService, seed.New(store, cfg)),
		WebSocket:     handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
	}, ratelimit.NewRedisLimiter(rdb, "ratelimit", time.Minute), cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	go func() {
		log.Infof("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	log.Info("Server shutdown complete")
}
