package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/metrics"
	"github.com/qs3c/pronos_server/internal/repository"
)

const DefaultCommissionRate = 0.30

// CommissionCredit 一次佣金入账结果
type CommissionCredit struct {
	ReferrerID int64
	Amount     int64
}

type ReferralService struct {
	userRepo *repository.UserRepository
	txnRepo  *repository.TransactionRepository
	rate     float64
	currency string
	log      zerolog.Logger
}

func NewReferralService(userRepo *repository.UserRepository, txnRepo *repository.TransactionRepository, rate float64, currency string, log zerolog.Logger) *ReferralService {
	if rate <= 0 {
		rate = DefaultCommissionRate
	}
	if currency == "" {
		currency = "XOF"
	}
	return &ReferralService{
		userRepo: userRepo,
		txnRepo:  txnRepo,
		rate:     rate,
		currency: currency,
		log:      log.With().Str("service", "referral").Logger(),
	}
}

// Rate 佣金比例
func (s *ReferralService) Rate() float64 {
	return s.rate
}

// CommissionFor round(amount × rate)
func (s *ReferralService) CommissionFor(amount int64) int64 {
	return int64(math.Round(float64(amount) * s.rate))
}

// CreditCommission 买家有推荐人时给推荐人记佣金，同时写一条佣金流水。
// 没有推荐人或佣金为 0 时返回 nil, nil，不做任何修改。
// sourceRef 标识触发佣金的资金事件，流水以 "commission:<sourceRef>" 去重。
func (s *ReferralService) CreditCommission(tx *gorm.DB, buyerID, amount int64, sourceRef string) (*CommissionCredit, error) {
	userRepo, txnRepo := s.userRepo, s.txnRepo
	if tx != nil {
		userRepo, txnRepo = userRepo.WithTx(tx), txnRepo.WithTx(tx)
	}

	buyer, err := userRepo.GetByID(buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if buyer.ReferredByID == nil || *buyer.ReferredByID == buyer.ID {
		return nil, nil
	}

	commission := s.CommissionFor(amount)
	if commission <= 0 {
		return nil, nil
	}
	referrerID := *buyer.ReferredByID

	providerID := "commission:" + sourceRef
	txn := &model.Transaction{
		UserID:     referrerID,
		Type:       model.TransactionTypeCommission,
		Amount:     commission,
		Currency:   s.currency,
		Status:     model.TransactionStatusCompleted,
		Provider:   "referral",
		ProviderID: &providerID,
		Metadata: datatypes.JSONMap{
			"referred_user_id": buyerID,
			"payment_amount":   amount,
			"rate":             s.rate,
			"source":           sourceRef,
		},
	}
	if err := txnRepo.Create(txn); err != nil {
		return nil, fmt.Errorf("record commission: %w", err)
	}
	if err := userRepo.AddCommission(referrerID, commission); err != nil {
		return nil, fmt.Errorf("credit commission: %w", err)
	}

	metrics.RecordCommission(commission)
	s.log.Info().
		Int64("referrer_id", referrerID).
		Int64("buyer_id", buyerID).
		Int64("amount", commission).
		Str("source", sourceRef).
		Msg("commission credited")
	return &CommissionCredit{ReferrerID: referrerID, Amount: commission}, nil
}

// Summary 推荐汇总
func (s *ReferralService) Summary(userID int64) (*dto.ReferralSummary, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	count, err := s.userRepo.CountReferrals(userID)
	if err != nil {
		return nil, err
	}
	earned, err := s.txnRepo.SumByType(userID, model.TransactionTypeCommission)
	if err != nil {
		return nil, err
	}
	return &dto.ReferralSummary{
		ReferralCode:      user.ReferralCode,
		BalanceCommission: user.BalanceCommission,
		ReferralCount:     count,
		TotalEarned:       earned,
		CommissionRate:    s.rate,
	}, nil
}
