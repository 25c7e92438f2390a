package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/api"
	"github.com/qs3c/pronos_server/internal/api/handler"
	"github.com/qs3c/pronos_server/internal/database"
	"github.com/qs3c/pronos_server/internal/pkg/authz"
	"github.com/qs3c/pronos_server/internal/pkg/cron"
	"github.com/qs3c/pronos_server/internal/pkg/lock"
	"github.com/qs3c/pronos_server/internal/pkg/logger"
	"github.com/qs3c/pronos_server/internal/pkg/metrics"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/pubsub"
	"github.com/qs3c/pronos_server/internal/pkg/queue"
	"github.com/qs3c/pronos_server/internal/pkg/validate"
	"github.com/qs3c/pronos_server/internal/pkg/ws"
	"github.com/qs3c/pronos_server/internal/repository"
	"github.com/qs3c/pronos_server/internal/service"
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
	log := logger.New(cfg.Log)

	if err := run(cfg, configPath, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, configPath string, log zerolog.Logger) error {
	if err := validate.Register(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}
	metrics.Init()

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close()
	log.Info().Msg("redis connected")

	publisher := pubsub.NewPublisher(rdb, cfg.Notification.Channel)
	fanoutQueue := queue.NewQueue(rdb, cfg.Notification.FanoutQueue)
	locker := lock.NewLocker(rdb, "pronos")
	policy := authz.NewAdminPolicy(cfg.Admin.Emails)
	mf := cfg.Payment.MoneyFusion
	mfClient := moneyfusion.NewClient(mf.APIURL, mf.StatusURL, mf.ProviderTimeout())

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub(log)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	pronoRepo := repository.NewPronoRepository(db)

	// 初始化 Service
	subscriptionService := service.NewSubscriptionService(subRepo, log)
	referralService := service.NewReferralService(userRepo, txnRepo, cfg.Subscription.CommissionRate, cfg.Payment.Currency, log)
	userService := service.NewUserService(userRepo, subscriptionService, policy)
	authService := service.NewAuthService(userRepo, userService, cfg, log)
	paymentService := service.NewPaymentService(db, paymentRepo, txnRepo, subscriptionService, referralService, mfClient, publisher, cfg, log)
	webhookService := service.NewWebhookService(db, userRepo, paymentRepo, txnRepo, subscriptionService, referralService, paymentService, service.WebhookOptions{
		Locker:     locker,
		Provider:   mfClient,
		Verify:     mf.VerifyWebhook,
		PeriodDays: cfg.Subscription.WebhookPeriodDays,
		Plans:      cfg.Subscription.Plans,
	}, log)
	pronoService := service.NewPronoService(pronoRepo, fanoutQueue, log)
	adminService := service.NewAdminService(userRepo, subRepo, paymentRepo, pronoRepo, cfg.Payment.Currency)

	// 初始化 Handler
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService, subscriptionService, referralService),
		handler.NewPlansHandler(cfg),
		handler.NewPronoHandler(pronoService),
		handler.NewPaymentHandler(paymentService),
		handler.NewWebhookHandler(webhookService, log),
		handler.NewAdminHandler(adminService, paymentService, pronoService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, log),
		subscriptionService,
		policy,
		cfg,
		log,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 管理员白名单热更新
	if err := config.Watch(configPath, func(next *config.Config) {
		policy.Replace(next.Admin.Emails)
		log.Info().Int("admins", policy.Len()).Msg("admin whitelist reloaded")
	}); err != nil {
		log.Warn().Err(err).Msg("config watch disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := cron.NewService(subscriptionService, time.Duration(cfg.Subscription.ExpirySweepMinute)*time.Minute, log)
	sweeper.Start()
	defer sweeper.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Redis 通知转发到在线 WebSocket 连接
	g.Go(func() error {
		sub := pubsub.NewSubscriber(rdb, cfg.Notification.Channel)
		err := sub.Subscribe(gctx, nil, relay(wsHub, log))
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("notification relay: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// relay 用户通知按 user_id 定向发送，user_id 为 0 时广播
func relay(hub *ws.Hub, log zerolog.Logger) func(*pubsub.Event) {
	return func(event *pubsub.Event) {
		msg := &ws.Message{Type: event.Type, Data: event}
		var err error
		if event.UserID == 0 {
			err = hub.Broadcast(msg)
		} else {
			err = hub.SendToUser(event.UserID, msg)
		}
		if err != nil {
			log.Warn().Err(err).Str("type", event.Type).Int64("user_id", event.UserID).Msg("relay notification failed")
		}
	}
}
