package model

import (
	"time"
)

const (
	PronoStatusDraft     = "draft"
	PronoStatusPublished = "published"
	PronoStatusArchived  = "archived"
)

const (
	PronoResultPending = "pending"
	PronoResultWon     = "won"
	PronoResultLost    = "lost"
	PronoResultVoid    = "void"
)

// Prono 赛事预测。AccessTier 决定谁能看到完整内容，访问权限在读取时计算。
type Prono struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Sport       string     `gorm:"size:50;not null;default:football" json:"sport"`
	Competition string     `gorm:"size:100;not null" json:"competition"`
	MatchTime   time.Time  `gorm:"not null;index" json:"match_time"`
	HomeTeam    string     `gorm:"size:100;not null" json:"home_team"`
	AwayTeam    string     `gorm:"size:100;not null" json:"away_team"`
	Tip         string     `gorm:"size:200;not null" json:"tip"`
	Odd         float64    `gorm:"type:decimal(5,2);not null" json:"odd"`
	Confidence  int        `gorm:"not null" json:"confidence"`
	AccessTier  string     `gorm:"size:20;not null;default:free;index" json:"access_tier"`
	Content     string     `gorm:"type:text" json:"content,omitempty"`
	Analysis    string     `gorm:"type:text" json:"analysis,omitempty"`
	Status      string     `gorm:"size:20;not null;default:draft;index" json:"status"`
	Result      string     `gorm:"size:20;not null;default:pending" json:"result"`
	AuthorID    *int64     `json:"author_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Prono) TableName() string {
	return "pronos"
}
