package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/queue"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
	"github.com/qs3c/pronos_server/internal/repository"
)

var (
	ErrPronoNotFound = errors.New("预测不存在")
	ErrInvalidDate   = errors.New("日期格式应为 YYYY-MM-DD")
)

// Enqueuer 发布推送任务，可为 nil
type Enqueuer interface {
	Push(ctx context.Context, job *queue.FanoutJob) error
}

type PronoService struct {
	pronoRepo *repository.PronoRepository
	fanout    Enqueuer
	log       zerolog.Logger
	now       func() time.Time
}

func NewPronoService(pronoRepo *repository.PronoRepository, fanout Enqueuer, log zerolog.Logger) *PronoService {
	return &PronoService{
		pronoRepo: pronoRepo,
		fanout:    fanout,
		log:       log.With().Str("service", "prono").Logger(),
		now:       time.Now,
	}
}

// ListForViewer 已发布预测列表，按用户等级逐条判断是否锁定
func (s *PronoService) ListForViewer(viewer tier.Tier, query *dto.PronoListQuery) ([]*dto.PronoItem, int64, error) {
	var from, to time.Time
	if query.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", query.Date, time.UTC)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		from, to = day, day.Add(24*time.Hour)
	}

	pronos, total, err := s.pronoRepo.ListPublished(from, to, query.Page, query.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.PronoItem, 0, len(pronos))
	for _, p := range pronos {
		items = append(items, toPronoItem(p, viewer))
	}
	return items, total, nil
}

// GetForViewer 单条已发布预测
func (s *PronoService) GetForViewer(id int64, viewer tier.Tier) (*dto.PronoItem, error) {
	prono, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if prono.Status != model.PronoStatusPublished {
		return nil, ErrPronoNotFound
	}
	return toPronoItem(prono, viewer), nil
}

// toPronoItem 无权访问时隐藏 tip / content / analysis，只保留比赛信息
func toPronoItem(p *model.Prono, viewer tier.Tier) *dto.PronoItem {
	required := tier.Normalize(p.AccessTier)
	access := tier.Check(viewer, required)

	item := &dto.PronoItem{
		ID:          p.ID,
		Title:       p.Title,
		Sport:       p.Sport,
		Competition: p.Competition,
		MatchTime:   p.MatchTime,
		HomeTeam:    p.HomeTeam,
		AwayTeam:    p.AwayTeam,
		Odd:         p.Odd,
		Confidence:  p.Confidence,
		AccessTier:  string(required),
		Status:      p.Status,
		Result:      p.Result,
		PublishedAt: p.PublishedAt,
		Access:      access,
		Preview:     tier.ShouldShowPartialPreview(viewer, required),
	}
	if access.CanAccess {
		item.Tip = p.Tip
		item.Content = p.Content
		item.Analysis = p.Analysis
	}
	return item
}

// ListAdmin 管理端列表（全部字段）
func (s *PronoService) ListAdmin(query *dto.AdminPronoListQuery) ([]*model.Prono, int64, error) {
	return s.pronoRepo.List(query.Status, query.Page, query.PageSize)
}

// GetAdmin 管理端详情
func (s *PronoService) GetAdmin(id int64) (*model.Prono, error) {
	return s.get(id)
}

// Create 创建预测，Publish 为 true 时直接发布
func (s *PronoService) Create(ctx context.Context, authorID int64, req *dto.CreatePronoRequest) (*model.Prono, error) {
	sport := strings.TrimSpace(req.Sport)
	if sport == "" {
		sport = "football"
	}
	prono := &model.Prono{
		Title:       strings.TrimSpace(req.Title),
		Sport:       sport,
		Competition: strings.TrimSpace(req.Competition),
		MatchTime:   req.MatchTime,
		HomeTeam:    strings.TrimSpace(req.HomeTeam),
		AwayTeam:    strings.TrimSpace(req.AwayTeam),
		Tip:         strings.TrimSpace(req.Tip),
		Odd:         req.Odd,
		Confidence:  req.Confidence,
		AccessTier:  string(tier.Normalize(req.AccessTier)),
		Content:     req.Content,
		Analysis:    req.Analysis,
		Status:      model.PronoStatusDraft,
		Result:      model.PronoResultPending,
		AuthorID:    &authorID,
	}
	if err := s.pronoRepo.Create(prono); err != nil {
		return nil, err
	}

	if req.Publish {
		return s.Publish(ctx, prono.ID)
	}
	return prono, nil
}

// Update 更新预测内容
func (s *PronoService) Update(id int64, req *dto.UpdatePronoRequest) (*model.Prono, error) {
	if _, err := s.get(id); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Competition != nil {
		fields["competition"] = strings.TrimSpace(*req.Competition)
	}
	if req.MatchTime != nil {
		fields["match_time"] = *req.MatchTime
	}
	if req.Tip != nil {
		fields["tip"] = strings.TrimSpace(*req.Tip)
	}
	if req.Odd != nil {
		fields["odd"] = *req.Odd
	}
	if req.Confidence != nil {
		fields["confidence"] = *req.Confidence
	}
	if req.AccessTier != nil {
		fields["access_tier"] = string(tier.Normalize(*req.AccessTier))
	}
	if req.Content != nil {
		fields["content"] = *req.Content
	}
	if req.Analysis != nil {
		fields["analysis"] = *req.Analysis
	}

	if len(fields) > 0 {
		if err := s.pronoRepo.UpdateFields(id, fields); err != nil {
			return nil, err
		}
	}
	return s.get(id)
}

// Publish 发布预测并推送给可访问的用户。已发布时直接返回。
func (s *PronoService) Publish(ctx context.Context, id int64) (*model.Prono, error) {
	prono, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if prono.Status == model.PronoStatusPublished {
		return prono, nil
	}

	now := s.now()
	if err := s.pronoRepo.UpdateFields(id, map[string]interface{}{
		"status":       model.PronoStatusPublished,
		"published_at": now,
	}); err != nil {
		return nil, err
	}
	prono.Status = model.PronoStatusPublished
	prono.PublishedAt = &now

	if s.fanout != nil {
		job := &queue.FanoutJob{
			PronoID:     prono.ID,
			AccessTier:  prono.AccessTier,
			Title:       prono.Title,
			HomeTeam:    prono.HomeTeam,
			AwayTeam:    prono.AwayTeam,
			PublishedAt: now,
		}
		if err := s.fanout.Push(ctx, job); err != nil {
			s.log.Warn().Err(err).Int64("prono_id", prono.ID).Msg("enqueue fanout job failed")
		}
	}

	s.log.Info().Int64("prono_id", prono.ID).Str("access_tier", prono.AccessTier).Msg("prono published")
	return prono, nil
}

// Archive 下线预测
func (s *PronoService) Archive(id int64) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	return s.pronoRepo.UpdateFields(id, map[string]interface{}{"status": model.PronoStatusArchived})
}

// SetResult 设置赛果
func (s *PronoService) SetResult(id int64, result string) (*model.Prono, error) {
	if _, err := s.get(id); err != nil {
		return nil, err
	}
	if err := s.pronoRepo.UpdateFields(id, map[string]interface{}{"result": result}); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *PronoService) get(id int64) (*model.Prono, error) {
	prono, err := s.pronoRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPronoNotFound
		}
		return nil, err
	}
	return prono, nil
}
