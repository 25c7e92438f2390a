package service

import (
	"time"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/repository"
)

type AdminService struct {
	userRepo    *repository.UserRepository
	subRepo     *repository.SubscriptionRepository
	paymentRepo *repository.PaymentRepository
	pronoRepo   *repository.PronoRepository
	currency    string
	now         func() time.Time
}

func NewAdminService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	paymentRepo *repository.PaymentRepository,
	pronoRepo *repository.PronoRepository,
	currency string,
) *AdminService {
	return &AdminService{
		userRepo:    userRepo,
		subRepo:     subRepo,
		paymentRepo: paymentRepo,
		pronoRepo:   pronoRepo,
		currency:    currency,
		now:         time.Now,
	}
}

// Stats 后台统计
func (s *AdminService) Stats() (*dto.StatsResponse, error) {
	users, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	active, err := s.subRepo.CountActive(s.now())
	if err != nil {
		return nil, err
	}
	pending, err := s.paymentRepo.CountByStatus(model.PaymentStatusPending)
	if err != nil {
		return nil, err
	}
	revenue, err := s.paymentRepo.SumApproved()
	if err != nil {
		return nil, err
	}
	published, err := s.pronoRepo.CountByStatus(model.PronoStatusPublished)
	if err != nil {
		return nil, err
	}

	return &dto.StatsResponse{
		Users:               users,
		ActiveSubscriptions: active,
		PendingPayments:     pending,
		ApprovedRevenue:     revenue,
		PublishedPronos:     published,
		Currency:            s.currency,
	}, nil
}
