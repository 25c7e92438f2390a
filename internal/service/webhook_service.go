package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/pkg/lock"
	"github.com/qs3c/pronos_server/internal/pkg/metrics"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
	"github.com/qs3c/pronos_server/internal/repository"
)

// Outcome 回调处理结果
type Outcome string

const (
	OutcomeActivated        Outcome = "activated"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeCancelled        Outcome = "cancelled"
	OutcomePending          Outcome = "pending"
	OutcomeIgnored          Outcome = "ignored"
)

var (
	ErrWebhookMissingUser   = errors.New("回调缺少用户信息")
	ErrWebhookMissingToken  = errors.New("回调缺少支付 token")
	ErrWebhookMissingAmount = errors.New("回调缺少支付金额")
	ErrWebhookUnknownUser   = errors.New("回调中的用户不存在")
	ErrWebhookInProgress    = errors.New("同一笔支付正在处理中")
	ErrWebhookUnverified    = errors.New("服务商未确认该笔支付")
	ErrWebhookUnderpaid     = errors.New("回调金额低于套餐价格")
)

const (
	webhookPeriodDays = 30
	webhookLockTTL    = 30 * time.Second
)

type WebhookService struct {
	db            *gorm.DB
	userRepo      *repository.UserRepository
	paymentRepo   *repository.PaymentRepository
	txnRepo       *repository.TransactionRepository
	subscriptions *SubscriptionService
	referrals     *ReferralService
	payments      *PaymentService
	locker        *lock.Locker
	provider      Provider
	verify        bool
	plans         map[string]config.PlanConfig
	periodDays    int
	log           zerolog.Logger
	now           func() time.Time
}

// WebhookOptions 可选依赖：locker 为 nil 时不加锁；verify 为 true 时向服务商二次确认；
// Plans 为价格表，金额低于标价的回调不开通
type WebhookOptions struct {
	Locker     *lock.Locker
	Provider   Provider
	Verify     bool
	PeriodDays int
	Plans      map[string]config.PlanConfig
}

func NewWebhookService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	paymentRepo *repository.PaymentRepository,
	txnRepo *repository.TransactionRepository,
	subscriptions *SubscriptionService,
	referrals *ReferralService,
	payments *PaymentService,
	opts WebhookOptions,
	log zerolog.Logger,
) *WebhookService {
	days := opts.PeriodDays
	if days <= 0 {
		days = webhookPeriodDays
	}
	return &WebhookService{
		db:            db,
		userRepo:      userRepo,
		paymentRepo:   paymentRepo,
		txnRepo:       txnRepo,
		subscriptions: subscriptions,
		referrals:     referrals,
		payments:      payments,
		locker:        opts.Locker,
		provider:      opts.Provider,
		verify:        opts.Verify && opts.Provider != nil,
		plans:         opts.Plans,
		periodDays:    days,
		log:           log.With().Str("service", "webhook").Logger(),
		now:           time.Now,
	}
}

// Reconcile 处理一条归一化后的 MoneyFusion 回调。
// 必填字段（用户、套餐、token、金额）在任何处理之前校验。
func (s *WebhookService) Reconcile(ctx context.Context, n moneyfusion.Notification) (Outcome, error) {
	if n.UserID == 0 || strings.TrimSpace(n.Plan) == "" {
		return "", ErrWebhookMissingUser
	}
	if n.Token == "" {
		return "", ErrWebhookMissingToken
	}
	if n.Amount <= 0 {
		return "", ErrWebhookMissingAmount
	}

	log := s.log.With().
		Str("event", n.Event).
		Str("token", n.Token).
		Int64("user_id", n.UserID).
		Logger()

	var (
		outcome Outcome
		err     error
	)
	switch n.Event {
	case moneyfusion.EventCompleted:
		outcome, err = s.complete(ctx, n, log)
	case moneyfusion.EventCancelled, moneyfusion.EventFailed:
		log.Warn().Msg("payment failed or cancelled")
		outcome = OutcomeCancelled
	case moneyfusion.EventPending:
		log.Info().Msg("payment pending")
		outcome = OutcomePending
	default:
		log.Info().Msg("unhandled webhook event")
		outcome = OutcomeIgnored
	}

	if err != nil {
		metrics.RecordWebhook(n.Event, "error")
		return "", err
	}
	metrics.RecordWebhook(n.Event, string(outcome))
	return outcome, nil
}

func (s *WebhookService) complete(ctx context.Context, n moneyfusion.Notification, log zerolog.Logger) (Outcome, error) {
	plan := strings.ToLower(strings.TrimSpace(n.Plan))
	if !tier.IsPaidPlan(plan) {
		return "", ErrInvalidPlan
	}
	if price := PlanPrice(s.plans, plan); n.Amount < price {
		log.Warn().Str("plan", plan).Int64("amount", n.Amount).Int64("price", price).Msg("payment amount below plan price")
		return "", ErrWebhookUnderpaid
	}

	if s.locker != nil {
		lk, err := s.locker.Acquire(ctx, "webhook:"+n.Token, webhookLockTTL)
		if err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				return "", ErrWebhookInProgress
			}
			return "", fmt.Errorf("acquire webhook lock: %w", err)
		}
		defer func() {
			if err := lk.Release(context.Background()); err != nil {
				log.Warn().Err(err).Msg("release webhook lock failed")
			}
		}()
	}

	done, err := s.txnRepo.ExistsCompleted(n.Token)
	if err != nil {
		return "", err
	}
	if done {
		log.Info().Msg("payment already processed")
		return OutcomeAlreadyProcessed, nil
	}

	if s.verify {
		status, err := s.provider.CheckStatus(ctx, n.Token)
		metrics.RecordProviderCall("status", err)
		if err != nil {
			log.Error().Err(err).Msg("verify payment with provider failed")
			return "", ErrWebhookUnverified
		}
		if !status.Paid() {
			log.Warn().Str("provider_status", status.Status).Msg("provider does not confirm payment")
			return "", ErrWebhookUnverified
		}
	}

	now := s.now()
	var (
		sub    *model.Subscription
		credit *CommissionCredit
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.WithTx(tx).GetByID(n.UserID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWebhookUnknownUser
			}
			return err
		}

		payment := &model.Payment{
			Reference:     uuid.NewString(),
			UserID:        n.UserID,
			Amount:        n.Amount,
			Currency:      s.referrals.currency,
			Plan:          plan,
			Method:        model.PaymentMethodMobileMoneyAuto,
			ProviderToken: n.Token,
			MobileNumber:  n.Phone,
			Status:        model.PaymentStatusApproved,
			Notes:         fmt.Sprintf("MoneyFusion Token: %s\nClient: %s\nPaiement automatique validé", n.Token, n.Name),
			ProcessedAt:   &now,
		}
		if err := s.paymentRepo.WithTx(tx).Create(payment); err != nil {
			return fmt.Errorf("record payment: %w", err)
		}

		var err error
		sub, err = s.subscriptions.ActivateOrExtend(tx, n.UserID, plan, FixedDays(s.periodDays), now)
		if err != nil {
			return err
		}

		credit, err = s.referrals.CreditCommission(tx, n.UserID, n.Amount, n.Token)
		if err != nil {
			return err
		}

		token := n.Token
		txn := &model.Transaction{
			UserID:     n.UserID,
			Type:       model.TransactionTypePayment,
			Amount:     n.Amount,
			Currency:   s.referrals.currency,
			Status:     model.TransactionStatusCompleted,
			Provider:   providerMoneyFusion,
			ProviderID: &token,
			Metadata: datatypes.JSONMap{
				"plan":               plan,
				"payment_method":     "mobile_money",
				"phone":              n.Phone,
				"payment_id":         payment.ID,
				"transaction_number": n.TransactionNumber,
			},
		}
		if err := s.txnRepo.WithTx(tx).Create(txn); err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Info().Msg("concurrent delivery already recorded this payment")
			return OutcomeAlreadyProcessed, nil
		}
		return "", err
	}

	metrics.RecordApproval("webhook")
	log.Info().
		Str("plan", sub.Plan).
		Time("period_end", *sub.CurrentPeriodEnd).
		Msg("subscription activated")

	if s.payments != nil {
		s.payments.notifyActivated(ctx, n.UserID, sub.Plan, sub.CurrentPeriodEnd.Format(time.RFC3339))
		s.payments.notifyCommission(ctx, credit)
	}
	return OutcomeActivated, nil
}
