package main

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/database"
	"github.com/qs3c/pronos_server/internal/pkg/authz"
	"github.com/qs3c/pronos_server/internal/pkg/logger"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/repository"
	"github.com/qs3c/pronos_server/internal/service"
)

// env 命令行用到的服务。运维操作不经过 Redis，审核通知不推送。
type env struct {
	cfg           *config.Config
	policy        *authz.AdminPolicy
	users         *repository.UserRepository
	subscriptions *service.SubscriptionService
	payments      *service.PaymentService
	log           zerolog.Logger
}

type envLoader func(configPath string) (*env, error)

func loadEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return newEnv(cfg, db, logger.New(cfg.Log)), nil
}

func newEnv(cfg *config.Config, db *gorm.DB, log zerolog.Logger) *env {
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewTransactionRepository(db)

	mf := cfg.Payment.MoneyFusion
	subscriptions := service.NewSubscriptionService(subRepo, log)
	referrals := service.NewReferralService(userRepo, txnRepo, cfg.Subscription.CommissionRate, cfg.Payment.Currency, log)
	payments := service.NewPaymentService(db, paymentRepo, txnRepo, subscriptions, referrals,
		moneyfusion.NewClient(mf.APIURL, mf.StatusURL, mf.ProviderTimeout()), nil, cfg, log)

	return &env{
		cfg:           cfg,
		policy:        authz.NewAdminPolicy(cfg.Admin.Emails),
		users:         userRepo,
		subscriptions: subscriptions,
		payments:      payments,
		log:           log,
	}
}
