package dto

import (
	"time"

	"github.com/qs3c/pronos_server/internal/pkg/tier"
)

// PronoListQuery 预测列表查询，date 为 YYYY-MM-DD
type PronoListQuery struct {
	Date     string `form:"date"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=50" binding:"min=1,max=100"`
}

// AdminPronoListQuery 管理端预测列表
type AdminPronoListQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=draft published archived"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
}

// PronoItem 面向用户的预测，锁定时 tip / content / analysis 被隐藏
type PronoItem struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Sport       string            `json:"sport"`
	Competition string            `json:"competition"`
	MatchTime   time.Time         `json:"match_time"`
	HomeTeam    string            `json:"home_team"`
	AwayTeam    string            `json:"away_team"`
	Tip         string            `json:"tip,omitempty"`
	Odd         float64           `json:"odd"`
	Confidence  int               `json:"confidence"`
	AccessTier  string            `json:"access_tier"`
	Content     string            `json:"content,omitempty"`
	Analysis    string            `json:"analysis,omitempty"`
	Status      string            `json:"status"`
	Result      string            `json:"result"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	Access      tier.AccessResult `json:"access"`
	Preview     bool              `json:"preview"`
}

// CreatePronoRequest 创建预测
type CreatePronoRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Sport       string    `json:"sport" binding:"omitempty,max=50"`
	Competition string    `json:"competition" binding:"required,max=100"`
	MatchTime   time.Time `json:"match_time" binding:"required"`
	HomeTeam    string    `json:"home_team" binding:"required,max=100"`
	AwayTeam    string    `json:"away_team" binding:"required,max=100"`
	Tip         string    `json:"tip" binding:"required,max=200"`
	Odd         float64   `json:"odd" binding:"required,gt=1"`
	Confidence  int       `json:"confidence" binding:"required,min=1,max=5"`
	AccessTier  string    `json:"access_tier" binding:"required,tier"`
	Content     string    `json:"content"`
	Analysis    string    `json:"analysis"`
	Publish     bool      `json:"publish"`
}

// UpdatePronoRequest 更新预测，nil 字段不修改
type UpdatePronoRequest struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,max=200"`
	Competition *string    `json:"competition,omitempty" binding:"omitempty,max=100"`
	MatchTime   *time.Time `json:"match_time,omitempty"`
	Tip         *string    `json:"tip,omitempty" binding:"omitempty,max=200"`
	Odd         *float64   `json:"odd,omitempty" binding:"omitempty,gt=1"`
	Confidence  *int       `json:"confidence,omitempty" binding:"omitempty,min=1,max=5"`
	AccessTier  *string    `json:"access_tier,omitempty" binding:"omitempty,tier"`
	Content     *string    `json:"content,omitempty"`
	Analysis    *string    `json:"analysis,omitempty"`
}

// SetResultRequest 设置赛果
type SetResultRequest struct {
	Result string `json:"result" binding:"required,oneof=pending won lost void"`
}
