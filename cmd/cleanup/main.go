package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/database"
	"github.com/qs3c/pronos_server/internal/pkg/logger"
	"github.com/qs3c/pronos_server/internal/repository"
	"github.com/qs3c/pronos_server/internal/service"
)

var (
	dryRun  = flag.Bool("dry-run", true, "Dry run mode, only list subscriptions that would expire")
	limit   = flag.Int("limit", 200, "Max subscriptions listed in dry-run mode")
	timeout = flag.Duration("timeout", 5*time.Minute, "Abort the sweep after this duration")
)

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log).With().Str("process", "cleanup").Logger()

	// 连接数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	subscriptions := service.NewSubscriptionService(repository.NewSubscriptionRepository(db), log)

	log.Info().Bool("dry_run", *dryRun).Msg("starting subscription expiry sweep")
	if *dryRun {
		preview(subscriptions, log)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	n, err := subscriptions.ExpireOverdue(ctx)
	if err != nil {
		log.Fatal().Err(err).Int64("expired", n).Msg("sweep aborted")
	}
	log.Info().Int64("expired", n).Msg("cleanup completed")
}

// preview 列出逾期但仍为 active 的订阅
func preview(subscriptions *service.SubscriptionService, log zerolog.Logger) {
	subs, err := subscriptions.PreviewOverdue(*limit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list overdue subscriptions")
	}

	fmt.Println(strings.Repeat("=", 60))
	for _, sub := range subs {
		end := "-"
		if sub.CurrentPeriodEnd != nil {
			end = sub.CurrentPeriodEnd.Format(time.RFC3339)
		}
		fmt.Printf("  user=%d plan=%s period_end=%s\n", sub.UserID, sub.Plan, end)
	}
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%d subscription(s) would be expired\n", len(subs))
	fmt.Println("DRY RUN MODE - nothing was changed. Run with -dry-run=false to apply.")
}
