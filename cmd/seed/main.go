package main

import (
	"context"
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/database"
	"github.com/qs3c/sub_go_server/internal/pkg/logger"
	"github.com/qs3c/sub_go_server/internal/repository"
	"github.com/qs3c/sub_go_server/internal/seed"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	analytics := flag.Bool("analytics", false, "also generate historical subscriptions for analytics")
	months := flag.Int("months", 12, "months of history to generate")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log)

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	summary, err := seed.New(repository.NewStore(db), cfg).Run(context.Background(), seed.Options{
		Analytics: *analytics,
		Months:    *months,
	})
	if err != nil {
		log.Fatalf("Seed failed: %v", err)
	}

	log.WithFields(log.Fields{
		"users":           summary.Users,
		"plans":           summary.Plans,
		"discounts":       summary.Discounts,
		"payment_methods": summary.PaymentMethods,
		"subscriptions":   summary.Subscriptions,
		"billing_records": summary.BillingRecords,
		"snapshots":       summary.Snapshots,
	}).Info("Seed complete")
}
