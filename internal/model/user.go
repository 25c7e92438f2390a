package model

import (
	"time"
)

// User 用户资料（含推荐关系与佣金余额）
type User struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	Email             string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash      string    `gorm:"size:255;not null" json:"-"`
	FirstName         string    `gorm:"size:100" json:"first_name"`
	LastName          string    `gorm:"size:100" json:"last_name"`
	ReferralCode      string    `gorm:"size:20;uniqueIndex;not null" json:"referral_code"`
	ReferredByID      *int64    `gorm:"index" json:"referred_by_id,omitempty"` // 注册时确定，之后不可修改
	BalanceCommission int64     `gorm:"not null;default:0" json:"balance_commission"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}
