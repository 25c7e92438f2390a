package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/qs3c/pronos_server/internal/pkg/pubsub"
	"github.com/qs3c/pronos_server/internal/pkg/queue"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
	"github.com/qs3c/pronos_server/internal/repository"
)

const userBatchSize = 500

// Notifier 发布用户通知
type Notifier interface {
	Publish(ctx context.Context, event *pubsub.Event) error
}

// JobSource 推送任务来源
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.FanoutJob, error)
}

// Fanout 把新发布的预测推送给所有有权查看的用户
type Fanout struct {
	userRepo *repository.UserRepository
	subRepo  *repository.SubscriptionRepository
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewFanout(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	notifier Notifier,
	log zerolog.Logger,
) *Fanout {
	return &Fanout{
		userRepo: userRepo,
		subRepo:  subRepo,
		notifier: notifier,
		log:      log.With().Str("component", "fanout").Logger(),
		now:      time.Now,
	}
}

// Process 处理一条推送任务，返回成功推送的用户数。
// free 预测推送给全部用户，其余只推送给套餐等级足够且仍在有效期内的订阅者。
func (f *Fanout) Process(ctx context.Context, job *queue.FanoutJob) (int, error) {
	required := tier.Normalize(job.AccessTier)
	event := func(userID int64) *pubsub.Event {
		return &pubsub.Event{
			Type:    pubsub.TypePronoPublished,
			UserID:  userID,
			Title:   "Nouveau prono " + tier.Label(required),
			Message: fmt.Sprintf("%s vs %s", job.HomeTeam, job.AwayTeam),
			Data: map[string]interface{}{
				"prono_id":    job.PronoID,
				"title":       job.Title,
				"access_tier": string(required),
			},
		}
	}

	sent := 0
	send := func(ids []int64) error {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f.notifier.Publish(ctx, event(id)); err != nil {
				f.log.Warn().Err(err).Int64("user_id", id).Int64("prono_id", job.PronoID).Msg("publish notification failed")
				continue
			}
			sent++
		}
		return nil
	}

	if required == tier.Free {
		var after int64
		for {
			ids, err := f.userRepo.ListIDsAfter(after, userBatchSize)
			if err != nil {
				return sent, fmt.Errorf("list users: %w", err)
			}
			if len(ids) == 0 {
				break
			}
			if err := send(ids); err != nil {
				return sent, err
			}
			after = ids[len(ids)-1]
			if len(ids) < userBatchSize {
				break
			}
		}
	} else {
		ids, err := f.subRepo.ListActiveUserIDs(plansFor(required), f.now())
		if err != nil {
			return sent, fmt.Errorf("list subscribers: %w", err)
		}
		if err := send(ids); err != nil {
			return sent, err
		}
	}

	f.log.Info().
		Int64("prono_id", job.PronoID).
		Str("access_tier", string(required)).
		Int("recipients", sent).
		Msg("fanout completed")
	return sent, nil
}

// Run 启动 workers 个消费协程，阻塞直到 ctx 取消
func (f *Fanout) Run(ctx context.Context, source JobSource, workers int) {
	if workers <= 0 {
		workers = 1
	}

	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			log := f.log.With().Int("worker", workerID).Logger()
			for {
				if ctx.Err() != nil {
					log.Debug().Msg("worker shutting down")
					return
				}

				job, err := source.Pop(ctx, 5*time.Second)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Error().Err(err).Msg("pop job failed")
					time.Sleep(time.Second)
					continue
				}
				if job == nil {
					continue // 超时，继续等待
				}

				if _, err := f.Process(ctx, job); err != nil {
					log.Error().Err(err).Int64("prono_id", job.PronoID).Msg("fanout failed")
				}
			}
		}(i)
	}

	for i := 0; i < workers; i++ {
		<-done
	}
}

// plansFor 能访问 required 等级的付费套餐
func plansFor(required tier.Tier) []string {
	var plans []string
	for _, t := range tier.All {
		if t != tier.Free && tier.CanAccess(t, required) {
			plans = append(plans, string(t))
		}
	}
	return plans
}
