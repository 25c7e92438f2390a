package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/pkg/authz"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/pubsub"
	"github.com/qs3c/pronos_server/internal/pkg/queue"
	"github.com/qs3c/pronos_server/internal/repository"
	"github.com/qs3c/pronos_server/internal/testutil"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	session   *moneyfusion.Session
	status    *moneyfusion.PaymentStatus
	err       error
	requests  []*moneyfusion.InitiateRequest
	statusFor []string
}

func (f *fakeProvider) InitiatePayment(_ context.Context, req *moneyfusion.InitiateRequest) (*moneyfusion.Session, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) CheckStatus(_ context.Context, token string) (*moneyfusion.PaymentStatus, error) {
	f.statusFor = append(f.statusFor, token)
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (f *fakeNotifier) Publish(_ context.Context, event *pubsub.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeQueue struct {
	jobs []*queue.FanoutJob
}

func (f *fakeQueue) Push(_ context.Context, job *queue.FanoutJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type testEnv struct {
	db            *gorm.DB
	cfg           *config.Config
	policy        *authz.AdminPolicy
	provider      *fakeProvider
	notifier      *fakeNotifier
	fanout        *fakeQueue
	userRepo      *repository.UserRepository
	subRepo       *repository.SubscriptionRepository
	paymentRepo   *repository.PaymentRepository
	txnRepo       *repository.TransactionRepository
	pronoRepo     *repository.PronoRepository
	subscriptions *SubscriptionService
	referrals     *ReferralService
	users         *UserService
	auth          *AuthService
	payments      *PaymentService
	webhooks      *WebhookService
	pronos        *PronoService
	admin         *AdminService
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key-for-testing",
			ExpireHours: 24,
		},
		Admin: config.AdminConfig{Emails: []string{"admin@fixedpronos.com"}},
		Payment: config.PaymentConfig{
			Currency: "XOF",
			MoneyFusion: config.MoneyFusionConfig{
				APIURL:        "https://moneyfusion.test/api",
				PublicBaseURL: "https://fixedpronos.test",
			},
		},
		Subscription: config.SubscriptionConfig{
			Plans: map[string]config.PlanConfig{
				"basic": {Price: 500, DisplayName: "BASIC"},
				"pro":   {Price: 8900, DisplayName: "PRO"},
				"vip":   {Price: 19000, DisplayName: "VIP"},
			},
			WebhookPeriodDays: 30,
			CommissionRate:    0.30,
		},
	}
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()
	log := zerolog.Nop()

	env := &testEnv{
		db:          db,
		cfg:         cfg,
		policy:      authz.NewAdminPolicy(cfg.Admin.Emails),
		provider:    &fakeProvider{},
		notifier:    &fakeNotifier{},
		fanout:      &fakeQueue{},
		userRepo:    repository.NewUserRepository(db),
		subRepo:     repository.NewSubscriptionRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		txnRepo:     repository.NewTransactionRepository(db),
		pronoRepo:   repository.NewPronoRepository(db),
	}

	env.subscriptions = NewSubscriptionService(env.subRepo, log)
	env.subscriptions.now = func() time.Time { return testNow }
	env.referrals = NewReferralService(env.userRepo, env.txnRepo, cfg.Subscription.CommissionRate, cfg.Payment.Currency, log)
	env.users = NewUserService(env.userRepo, env.subscriptions, env.policy)
	env.auth = NewAuthService(env.userRepo, env.users, cfg, log)
	env.payments = NewPaymentService(db, env.paymentRepo, env.txnRepo, env.subscriptions, env.referrals, env.provider, env.notifier, cfg, log)
	env.payments.now = func() time.Time { return testNow }
	env.webhooks = NewWebhookService(db, env.userRepo, env.paymentRepo, env.txnRepo, env.subscriptions, env.referrals, env.payments, WebhookOptions{
		Provider:   env.provider,
		PeriodDays: cfg.Subscription.WebhookPeriodDays,
		Plans:      cfg.Subscription.Plans,
	}, log)
	env.webhooks.now = func() time.Time { return testNow }
	env.pronos = NewPronoService(env.pronoRepo, env.fanout, log)
	env.pronos.now = func() time.Time { return testNow }
	env.admin = NewAdminService(env.userRepo, env.subRepo, env.paymentRepo, env.pronoRepo, "XOF")
	env.admin.now = func() time.Time { return testNow }

	return env
}
