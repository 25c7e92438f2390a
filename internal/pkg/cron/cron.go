package cron

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Expirer 把已过期的订阅标记为 expired
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

type Service struct {
	expirer  Expirer
	interval time.Duration
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewService interval 为 0 时每 15 分钟执行一次
func NewService(expirer Expirer, interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Service{
		expirer:  expirer,
		interval: interval,
		log:      log.With().Str("component", "cron").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务，启动时先执行一次
func (s *Service) Start() {
	s.wg.Add(1)
	go s.runExpirySweep()
	s.log.Info().Dur("interval", s.interval).Msg("cron service started")
}

// Stop 停止定时任务并等待当前一轮结束
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	s.log.Info().Msg("cron service stopped")
}

func (s *Service) runExpirySweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	n, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.log.Error().Err(err).Int64("expired", n).Msg("expiry sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("expired", n).Msg("expiry sweep completed")
	}
}

// RunNow 立即执行一次过期扫描（用于测试或手动触发）
func (s *Service) RunNow(ctx context.Context) (int64, error) {
	s.log.Info().Msg("manual expiry sweep triggered")
	return s.expirer.ExpireOverdue(ctx)
}
