package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/metrics"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
	"github.com/qs3c/pronos_server/internal/repository"
)

var ErrInvalidPlan = errors.New("无效的套餐")

const expireBatchSize = 200

// ExtensionPolicy 决定一个订阅周期的长度
type ExtensionPolicy interface {
	PeriodEnd(start time.Time) time.Time
	String() string
}

// FixedDays 固定天数（回调自动支付使用 30 天）
type FixedDays int

func (d FixedDays) PeriodEnd(start time.Time) time.Time {
	return start.Add(time.Duration(d) * 24 * time.Hour)
}

func (d FixedDays) String() string {
	return fmt.Sprintf("%d days", int(d))
}

// CalendarMonths 自然月（管理员审核使用 1 个月）。
// 月末日期按 time.AddDate 的规则顺延，例如 1 月 31 日加一个月为 3 月 2 日或 3 日。
type CalendarMonths int

func (m CalendarMonths) PeriodEnd(start time.Time) time.Time {
	return start.AddDate(0, int(m), 0)
}

func (m CalendarMonths) String() string {
	return fmt.Sprintf("%d months", int(m))
}

type SubscriptionService struct {
	subRepo *repository.SubscriptionRepository
	log     zerolog.Logger
	now     func() time.Time
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepository, log zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{
		subRepo: subRepo,
		log:     log.With().Str("service", "subscription").Logger(),
		now:     time.Now,
	}
}

// GetByUser 获取用户订阅，不存在时返回 nil, nil
func (s *SubscriptionService) GetByUser(userID int64) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// GetUserTier 计算用户当前有效等级，没有订阅时为 free
func (s *SubscriptionService) GetUserTier(userID int64) (tier.Tier, error) {
	if userID == 0 {
		return tier.Free, nil
	}
	sub, err := s.GetByUser(userID)
	if err != nil {
		return tier.Free, err
	}
	if sub == nil {
		return tier.Free, nil
	}
	return tier.FromSubscription(sub.Status, sub.Plan), nil
}

// GetInfo 订阅详情及可访问的等级
func (s *SubscriptionService) GetInfo(userID int64) (*dto.SubscriptionInfo, error) {
	sub, err := s.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	return buildSubscriptionInfo(sub, s.now()), nil
}

func buildSubscriptionInfo(sub *model.Subscription, now time.Time) *dto.SubscriptionInfo {
	info := &dto.SubscriptionInfo{
		Tier:      string(tier.Free),
		AutoRenew: false,
	}
	if sub != nil {
		info.Plan = sub.Plan
		info.Status = sub.Status
		info.AutoRenew = sub.AutoRenew()
		info.Tier = string(tier.FromSubscription(sub.Status, sub.Plan))
		if sub.CurrentPeriodStart != nil {
			info.CurrentPeriodStart = sub.CurrentPeriodStart.Format(time.RFC3339)
		}
		if sub.CurrentPeriodEnd != nil {
			info.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format(time.RFC3339)
		}
		if end, ok := sub.ActiveUntil(now); ok {
			info.DaysLeft = int(end.Sub(now).Hours() / 24)
		}
	}
	for _, t := range tier.Accessible(tier.Tier(info.Tier)) {
		info.AccessibleTiers = append(info.AccessibleTiers, string(t))
	}
	return info
}

// ActivateOrExtend 激活或续期订阅。
// 已有 active 且未到期的订阅时，新周期从原到期时间开始；否则从 now 开始。
// tx 非空时在该事务内执行。
func (s *SubscriptionService) ActivateOrExtend(tx *gorm.DB, userID int64, plan string, policy ExtensionPolicy, now time.Time) (*model.Subscription, error) {
	plan = strings.ToLower(strings.TrimSpace(plan))
	if !tier.IsPaidPlan(plan) {
		return nil, ErrInvalidPlan
	}

	repo := s.subRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	existing, err := repo.GetByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load subscription: %w", err)
	}

	start := now
	extended := false
	if end, ok := existing.ActiveUntil(now); ok {
		start = end
		extended = true
	}
	end := policy.PeriodEnd(start)

	sub := &model.Subscription{
		UserID:             userID,
		Plan:               plan,
		Status:             model.SubscriptionStatusActive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		CancelAtPeriodEnd:  false,
	}
	if err := repo.Upsert(sub); err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	if existing != nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("plan", plan).
		Str("policy", policy.String()).
		Bool("extended", extended).
		Time("period_end", end).
		Msg("subscription activated")
	return sub, nil
}

// ExpireOverdue 将已到期的 active 订阅标记为 expired，返回处理数量
func (s *SubscriptionService) ExpireOverdue(ctx context.Context) (int64, error) {
	now := s.now()
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		subs, err := s.subRepo.ListOverdue(now, expireBatchSize)
		if err != nil {
			return total, err
		}
		if len(subs) == 0 {
			break
		}
		ids := make([]int64, 0, len(subs))
		for _, sub := range subs {
			ids = append(ids, sub.ID)
		}
		n, err := s.subRepo.MarkExpired(ids, now)
		if err != nil {
			return total, err
		}
		total += n
		if len(subs) < expireBatchSize {
			break
		}
	}

	if total > 0 {
		metrics.RecordExpired(total)
		s.log.Info().Int64("count", total).Msg("expired overdue subscriptions")
	}
	return total, nil
}

// PreviewOverdue 列出将被过期处理的订阅（不做修改）
func (s *SubscriptionService) PreviewOverdue(limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = expireBatchSize
	}
	return s.subRepo.ListOverdue(s.now(), limit)
}
