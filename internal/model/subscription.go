package model

import (
	"time"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
	SubscriptionStatusPending  = "pending"
)

// Subscription 每个用户至多一条订阅记录，只做状态流转，不物理删除
type Subscription struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	UserID             int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	Plan               string     `gorm:"size:20;not null" json:"plan"`                        // basic, pro, vip
	Status             string     `gorm:"size:20;not null;default:active;index" json:"status"` // active, canceled, expired, pending
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"index" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// AutoRenew 自动续费标记
func (s *Subscription) AutoRenew() bool {
	return !s.CancelAtPeriodEnd
}

// ActiveUntil 返回仍在有效期内的 active 订阅的结束时间
func (s *Subscription) ActiveUntil(now time.Time) (time.Time, bool) {
	if s == nil || s.Status != SubscriptionStatusActive || s.CurrentPeriodEnd == nil {
		return time.Time{}, false
	}
	if !s.CurrentPeriodEnd.After(now) {
		return time.Time{}, false
	}
	return *s.CurrentPeriodEnd, true
}
