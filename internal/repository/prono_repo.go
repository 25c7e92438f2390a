package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
)

type PronoRepository struct {
	db *gorm.DB
}

func NewPronoRepository(db *gorm.DB) *PronoRepository {
	return &PronoRepository{db: db}
}

func (r *PronoRepository) Create(prono *model.Prono) error {
	return r.db.Create(prono).Error
}

func (r *PronoRepository) GetByID(id int64) (*model.Prono, error) {
	var prono model.Prono
	err := r.db.Where("id = ?", id).First(&prono).Error
	if err != nil {
		return nil, err
	}
	return &prono, nil
}

func (r *PronoRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Prono{}).Where("id = ?", id).Updates(fields).Error
}

// ListPublished 已发布预测，from/to 为零值时不限制比赛时间
func (r *PronoRepository) ListPublished(from, to time.Time, page, pageSize int) ([]*model.Prono, int64, error) {
	var pronos []*model.Prono
	var total int64

	query := r.db.Model(&model.Prono{}).Where("status = ?", model.PronoStatusPublished)
	if !from.IsZero() {
		query = query.Where("match_time >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("match_time < ?", to)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("match_time ASC, id ASC").Offset(offset).Limit(pageSize).Find(&pronos).Error
	if err != nil {
		return nil, 0, err
	}
	return pronos, total, nil
}

// List 管理端列表，status 为空时返回全部
func (r *PronoRepository) List(status string, page, pageSize int) ([]*model.Prono, int64, error) {
	var pronos []*model.Prono
	var total int64

	query := r.db.Model(&model.Prono{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("match_time DESC, id DESC").Offset(offset).Limit(pageSize).Find(&pronos).Error
	if err != nil {
		return nil, 0, err
	}
	return pronos, total, nil
}

func (r *PronoRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Prono{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
