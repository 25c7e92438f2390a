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
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/metrics"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/pubsub"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
	"github.com/qs3c/pronos_server/internal/repository"
)

var (
	ErrMissingPaymentFields    = errors.New("缺少必填的支付字段")
	ErrPaymentNotFound         = errors.New("支付记录不存在")
	ErrPaymentAlreadyProcessed = errors.New("支付已被处理")
	ErrPaymentAlreadySettled   = errors.New("该支付已通过自动回调入账")
	ErrInvalidPaymentMethod    = errors.New("无效的支付方式")
	ErrAmountMismatch          = errors.New("支付金额与套餐价格不符")
)

// MissingFieldsError 列出缺失的字段，errors.Is(err, ErrMissingPaymentFields) 成立
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingPaymentFields
}

// Provider 支付服务商（MoneyFusion）
type Provider interface {
	InitiatePayment(ctx context.Context, req *moneyfusion.InitiateRequest) (*moneyfusion.Session, error)
	CheckStatus(ctx context.Context, token string) (*moneyfusion.PaymentStatus, error)
}

// Notifier 实时通知发布者，可为 nil
type Notifier interface {
	Publish(ctx context.Context, event *pubsub.Event) error
}

const (
	providerMoneyFusion = "moneyfusion"
	providerManual      = "manual"
)

type PaymentService struct {
	db            *gorm.DB
	paymentRepo   *repository.PaymentRepository
	txnRepo       *repository.TransactionRepository
	subscriptions *SubscriptionService
	referrals     *ReferralService
	provider      Provider
	notifier      Notifier
	cfg           *config.Config
	log           zerolog.Logger
	now           func() time.Time
}

func NewPaymentService(
	db *gorm.DB,
	paymentRepo *repository.PaymentRepository,
	txnRepo *repository.TransactionRepository,
	subscriptions *SubscriptionService,
	referrals *ReferralService,
	provider Provider,
	notifier Notifier,
	cfg *config.Config,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		db:            db,
		paymentRepo:   paymentRepo,
		txnRepo:       txnRepo,
		subscriptions: subscriptions,
		referrals:     referrals,
		provider:      provider,
		notifier:      notifier,
		cfg:           cfg,
		log:           log.With().Str("service", "payment").Logger(),
		now:           time.Now,
	}
}

// Initiate 向 MoneyFusion 创建支付会话，只发起一次请求，不写本地数据
func (s *PaymentService) Initiate(ctx context.Context, buyerID int64, req *dto.InitiatePaymentRequest) (*moneyfusion.Session, error) {
	var missing []string
	if buyerID == 0 {
		missing = append(missing, "userId")
	}
	if req.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(req.Plan) == "" {
		missing = append(missing, "plan")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		missing = append(missing, "phoneNumber")
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		missing = append(missing, "customerName")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	if !tier.IsPaidPlan(plan) {
		return nil, ErrInvalidPlan
	}
	if price := PlanPrice(s.cfg.Subscription.Plans, plan); price > 0 && req.Amount != price {
		return nil, ErrAmountMismatch
	}

	mfReq := moneyfusion.NewInitiateRequest(
		buyerID,
		req.Amount,
		plan,
		strings.TrimSpace(req.PhoneNumber),
		strings.TrimSpace(req.CustomerName),
		s.cfg.Payment.MoneyFusion.PublicBaseURL,
		s.now(),
	)

	session, err := s.provider.InitiatePayment(ctx, mfReq)
	metrics.RecordProviderCall("initiate", err)
	if err != nil {
		var perr *moneyfusion.ProviderError
		if errors.As(err, &perr) {
			s.log.Error().
				Int64("user_id", buyerID).
				Int("status", perr.StatusCode).
				Str("body", perr.Body).
				Msg("moneyfusion rejected payment session")
		}
		return nil, err
	}

	s.log.Info().
		Int64("user_id", buyerID).
		Str("plan", plan).
		Int64("amount", req.Amount).
		Str("token", session.PaymentToken).
		Msg("payment session created")
	return session, nil
}

// Checkout 创建支付会话并记录一条待支付的 mobile_money_auto 记录
func (s *PaymentService) Checkout(ctx context.Context, buyerID int64, req *dto.InitiatePaymentRequest) (*dto.InitiatePaymentResponse, error) {
	session, err := s.Initiate(ctx, buyerID, req)
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		Reference:     uuid.NewString(),
		UserID:        buyerID,
		Amount:        req.Amount,
		Currency:      s.currency(),
		Plan:          strings.ToLower(strings.TrimSpace(req.Plan)),
		Method:        model.PaymentMethodMobileMoneyAuto,
		ProviderToken: session.PaymentToken,
		MobileNumber:  strings.TrimSpace(req.PhoneNumber),
		Status:        model.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, fmt.Errorf("record pending payment: %w", err)
	}

	return &dto.InitiatePaymentResponse{
		PaymentURL:   session.PaymentURL,
		PaymentToken: session.PaymentToken,
		Message:      session.Message,
		Reference:    payment.Reference,
	}, nil
}

// SubmitManual 提交手动支付凭证，等待管理员审核
func (s *PaymentService) SubmitManual(userID int64, req *dto.ManualPaymentRequest) (*model.Payment, error) {
	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	if !tier.IsPaidPlan(plan) {
		return nil, ErrInvalidPlan
	}
	switch req.Method {
	case model.PaymentMethodMobileMoney, model.PaymentMethodCrypto, model.PaymentMethodBankTransfer:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	payment := &model.Payment{
		Reference:      uuid.NewString(),
		UserID:         userID,
		Amount:         req.Amount,
		Currency:       s.currency(),
		Plan:           plan,
		Method:         req.Method,
		MobileNumber:   req.MobileNumber,
		MobileProvider: req.MobileProvider,
		CryptoAddress:  req.CryptoAddress,
		CryptoTxHash:   req.CryptoTxHash,
		ProofURL:       req.ProofURL,
		Notes:          req.Notes,
		Status:         model.PaymentStatusPending,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Int64("payment_id", payment.ID).
		Str("method", payment.Method).
		Msg("manual payment submitted")
	return payment, nil
}

// ListMine 用户自己的支付记录
func (s *PaymentService) ListMine(userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	return s.paymentRepo.ListByUserID(userID, page, pageSize)
}

// List 管理员按状态筛选支付记录
func (s *PaymentService) List(query *dto.ListPaymentsQuery) ([]*model.Payment, int64, error) {
	return s.paymentRepo.List(query.Status, query.Page, query.PageSize)
}

// Get 获取单条支付记录
func (s *PaymentService) Get(paymentID int64) (*model.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// Approve 管理员审核通过：按自然月激活或续期订阅，给推荐人记佣金，记流水，标记支付已通过。
// 全部写操作在同一个事务中完成。
func (s *PaymentService) Approve(ctx context.Context, paymentID, adminID int64) (*dto.ApprovalResult, error) {
	now := s.now()
	var (
		result  *dto.ApprovalResult
		payment *model.Payment
		credit  *CommissionCredit
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.paymentRepo.WithTx(tx)
		txns := s.txnRepo.WithTx(tx)

		p, err := payments.GetByID(paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if !tier.IsPaidPlan(p.Plan) {
			return ErrInvalidPlan
		}
		if !p.IsOpen() {
			return ErrPaymentAlreadyProcessed
		}

		key, provider := ledgerKey(p)
		if provider == providerMoneyFusion {
			settled, err := txns.ExistsCompleted(key)
			if err != nil {
				return err
			}
			if settled {
				return ErrPaymentAlreadySettled
			}
		}

		sub, err := s.subscriptions.ActivateOrExtend(tx, p.UserID, p.Plan, CalendarMonths(1), now)
		if err != nil {
			return err
		}

		credit, err = s.referrals.CreditCommission(tx, p.UserID, p.Amount, key)
		if err != nil {
			return err
		}

		txn := &model.Transaction{
			UserID:     p.UserID,
			Type:       model.TransactionTypePayment,
			Amount:     p.Amount,
			Currency:   p.Currency,
			Status:     model.TransactionStatusCompleted,
			Provider:   provider,
			ProviderID: &key,
			Metadata: datatypes.JSONMap{
				"plan":           p.Plan,
				"payment_method": p.Method,
				"payment_id":     p.ID,
				"approved_by":    adminID,
			},
		}
		if err := txns.Create(txn); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPaymentAlreadySettled
			}
			return err
		}

		ok, err := payments.Transition(p.ID, model.PaymentStatusApproved, &adminID, now, "")
		if err != nil {
			return err
		}
		if !ok {
			return ErrPaymentAlreadyProcessed
		}

		payment = p
		result = &dto.ApprovalResult{
			PaymentID:   p.ID,
			UserID:      p.UserID,
			Plan:        sub.Plan,
			PeriodStart: sub.CurrentPeriodStart.Format(time.RFC3339),
			PeriodEnd:   sub.CurrentPeriodEnd.Format(time.RFC3339),
		}
		if credit != nil {
			result.Commission = credit.Amount
			result.ReferrerID = &credit.ReferrerID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApproval("admin")
	s.log.Info().
		Int64("payment_id", payment.ID).
		Int64("user_id", payment.UserID).
		Int64("admin_id", adminID).
		Str("plan", payment.Plan).
		Msg("payment approved")

	s.notifyActivated(ctx, payment.UserID, result.Plan, result.PeriodEnd)
	s.notifyCommission(ctx, credit)
	return result, nil
}

// Reject 管理员拒绝支付
func (s *PaymentService) Reject(ctx context.Context, paymentID, adminID int64, reason string) error {
	payment, err := s.Get(paymentID)
	if err != nil {
		return err
	}
	if !payment.IsOpen() {
		return ErrPaymentAlreadyProcessed
	}

	notes := payment.Notes
	if reason = strings.TrimSpace(reason); reason != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += "Rejet: " + reason
	}

	ok, err := s.paymentRepo.Transition(payment.ID, model.PaymentStatusRejected, &adminID, s.now(), notes)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPaymentAlreadyProcessed
	}

	metrics.RecordRejection()
	s.log.Info().
		Int64("payment_id", payment.ID).
		Int64("admin_id", adminID).
		Msg("payment rejected")

	s.publish(ctx, &pubsub.Event{
		Type:    pubsub.TypePaymentRejected,
		UserID:  payment.UserID,
		Title:   "Paiement refusé",
		Message: reasonOrDefault(reason),
		Data:    map[string]interface{}{"payment_id": payment.ID},
	})
	return nil
}

func (s *PaymentService) currency() string {
	if s.cfg.Payment.Currency == "" {
		return "XOF"
	}
	return s.cfg.Payment.Currency
}

func (s *PaymentService) notifyActivated(ctx context.Context, userID int64, plan, periodEnd string) {
	s.publish(ctx, &pubsub.Event{
		Type:    pubsub.TypeSubscriptionActivated,
		UserID:  userID,
		Title:   "Abonnement activé",
		Message: fmt.Sprintf("Votre abonnement %s est actif", tier.Label(tier.Tier(plan))),
		Data:    map[string]interface{}{"plan": plan, "period_end": periodEnd},
	})
}

func (s *PaymentService) notifyCommission(ctx context.Context, credit *CommissionCredit) {
	if credit == nil {
		return
	}
	s.publish(ctx, &pubsub.Event{
		Type:    pubsub.TypeCommissionCredited,
		UserID:  credit.ReferrerID,
		Title:   "Commission reçue",
		Message: fmt.Sprintf("Vous avez reçu %d %s de commission", credit.Amount, s.currency()),
		Data:    map[string]interface{}{"amount": credit.Amount},
	})
}

// publish 通知失败只记日志，不影响主流程
func (s *PaymentService) publish(ctx context.Context, event *pubsub.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("type", event.Type).Int64("user_id", event.UserID).Msg("publish notification failed")
	}
}

// ledgerKey 自动支付以服务商 token 作为流水幂等键，手动支付使用 manual:<reference>
func ledgerKey(p *model.Payment) (string, string) {
	if p.Method == model.PaymentMethodMobileMoneyAuto && p.ProviderToken != "" {
		return p.ProviderToken, providerMoneyFusion
	}
	return "manual:" + p.Reference, providerManual
}

func reasonOrDefault(reason string) string {
	if reason == "" {
		return "Votre paiement n'a pas pu être validé"
	}
	return reason
}
