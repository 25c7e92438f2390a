package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/database"
	"github.com/qs3c/pronos_server/internal/pkg/logger"
	"github.com/qs3c/pronos_server/internal/pkg/pubsub"
	"github.com/qs3c/pronos_server/internal/pkg/queue"
	"github.com/qs3c/pronos_server/internal/repository"
	"github.com/qs3c/pronos_server/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log).With().Str("process", "worker").Logger()

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	log.Info().Msg("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()
	log.Info().Msg("redis connected")

	// 初始化 Queue 和 Pub/Sub
	fanoutQueue := queue.NewQueue(rdb, cfg.Notification.FanoutQueue)
	publisher := pubsub.NewPublisher(rdb, cfg.Notification.Channel)

	fanout := worker.NewFanout(
		repository.NewUserRepository(db),
		repository.NewSubscriptionRepository(db),
		publisher,
		log,
	)

	// 创建 context 用于优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Int("max_workers", cfg.Notification.MaxWorkers).Str("queue", cfg.Notification.FanoutQueue).Msg("worker started")
	fanout.Run(ctx, fanoutQueue, cfg.Notification.MaxWorkers)
	log.Info().Msg("worker shutdown complete")
}
