package service

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/authz"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
	"github.com/qs3c/pronos_server/internal/repository"
)

type UserService struct {
	userRepo      *repository.UserRepository
	subscriptions *SubscriptionService
	policy        *authz.AdminPolicy
}

func NewUserService(userRepo *repository.UserRepository, subscriptions *SubscriptionService, policy *authz.AdminPolicy) *UserService {
	return &UserService{
		userRepo:      userRepo,
		subscriptions: subscriptions,
		policy:        policy,
	}
}

// GetProfile 获取用户详情（含当前等级与订阅）
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.BuildUserInfo(user)
}

// UpdateProfile 更新姓名
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}

	if err := s.userRepo.UpdateNames(user.ID, user.FirstName, user.LastName); err != nil {
		return nil, err
	}

	return s.BuildUserInfo(user)
}

// IsAdmin 邮箱是否在管理员白名单中
func (s *UserService) IsAdmin(email string) bool {
	return s.policy != nil && s.policy.IsAdmin(email)
}

// BuildUserInfo 组装返回给前端的用户信息
func (s *UserService) BuildUserInfo(user *model.User) (*dto.UserInfo, error) {
	sub, err := s.subscriptions.GetByUser(user.ID)
	if err != nil {
		return nil, err
	}

	info := &dto.UserInfo{
		ID:                user.ID,
		Email:             user.Email,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		ReferralCode:      user.ReferralCode,
		BalanceCommission: user.BalanceCommission,
		IsAdmin:           s.IsAdmin(user.Email),
		CreatedAt:         user.CreatedAt.Format(time.RFC3339),
	}

	current := tier.Free
	if sub != nil {
		info.Subscription = buildSubscriptionInfo(sub, s.subscriptions.now())
		current = tier.FromSubscription(sub.Status, sub.Plan)
	}
	info.Tier = string(current)
	info.TierLabel = tier.Label(current)

	return info, nil
}
