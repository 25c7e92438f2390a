package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/pronos_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) GetByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert 按 user_id 插入或覆盖订阅
func (r *SubscriptionRepository) Upsert(sub *model.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(sub).Error
}

// ListOverdue 已过期但仍标记为 active 的订阅
func (r *SubscriptionRepository) ListOverdue(now time.Time, limit int) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("status = ? AND current_period_end <= ?", model.SubscriptionStatusActive, now).
		Order("id ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

// MarkExpired 仅对仍处于 active 且已到期的记录生效，返回受影响行数
func (r *SubscriptionRepository) MarkExpired(ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&model.Subscription{}).
		Where("id IN ? AND status = ? AND current_period_end <= ?", ids, model.SubscriptionStatusActive, now).
		Updates(map[string]interface{}{
			"status":     model.SubscriptionStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *SubscriptionRepository) CountActive(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).
		Where("status = ? AND current_period_end > ?", model.SubscriptionStatusActive, now).
		Count(&count).Error
	return count, err
}

// ListActiveUserIDs 返回订阅了指定套餐且仍在有效期内的用户
func (r *SubscriptionRepository) ListActiveUserIDs(plans []string, now time.Time) ([]int64, error) {
	var ids []int64
	if len(plans) == 0 {
		return ids, nil
	}
	err := r.db.Model(&model.Subscription{}).
		Where("status = ? AND current_period_end > ? AND plan IN ?", model.SubscriptionStatusActive, now, plans).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
