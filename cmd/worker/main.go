package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/database"
	"github.com/qs3c/sub_go_server/internal/pkg/email"
	"github.com/qs3c/sub_go_server/internal/pkg/logger"
	"github.com/qs3c/sub_go_server/internal/pkg/oss"
	"github.com/qs3c/sub_go_server/internal/pkg/queue"
	"github.com/qs3c/sub_go_server/internal/repository"
	"github.com/qs3c/sub_go_server/internal/worker"
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
	log.Info("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Info("Redis connected")

	// 初始化 OSS（可选），未配置时回执写入本地暂存目录
	var archiver worker.Archiver
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.WithError(err).Warn("Failed to init OSS client")
		} else {
			archiver = ossClient
			log.Info("OSS client initialized")
		}
	}

	mailer := email.NewService(&cfg.Email)
	if !mailer.Enabled() {
		log.Info("SMTP not configured, receipt emails disabled")
	}

	receiptQueue := queue.NewQueue(rdb, cfg.Queue.ReceiptQueue)
	billingRepo := repository.NewBillingRepository(db)
	processor := worker.NewProcessor(
		billingRepo,
		repository.NewUserRepository(db),
		archiver,
		mailer,
		receiptQueue,
		cfg,
	)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	if archiver != nil {
		go worker.NewReuploader(archiver, billingRepo, cfg.Queue.ReceiptDir).Start(ctx)
	}

	log.WithField("workers", cfg.Queue.MaxWorkers).Info("Worker started")
	worker.Run(ctx, receiptQueue, processor, cfg.Queue.MaxWorkers)
	log.Info("Worker shutdown complete")
}
