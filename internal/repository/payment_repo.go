package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	return r.db.Create(payment).Error
}

func (r *PaymentRepository) GetByID(id int64) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByReference(reference string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("reference = ?", reference).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetOpenByProviderToken 查找某个服务商 token 对应的待处理支付（结账时创建）
func (r *PaymentRepository) GetOpenByProviderToken(token string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.Where("provider_token = ? AND status IN ?", token, openStatuses).
		Order("id DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

var openStatuses = []string{model.PaymentStatusPending, model.PaymentStatusProcessing}

// Transition 仅当支付仍处于待处理状态时才更新，返回是否更新成功
func (r *PaymentRepository) Transition(id int64, to string, processedBy *int64, at time.Time, notes string) (bool, error) {
	fields := map[string]interface{}{
		"status":       to,
		"processed_by": processedBy,
		"processed_at": at,
		"updated_at":   at,
	}
	if notes != "" {
		fields["notes"] = notes
	}
	result := r.db.Model(&model.Payment{}).
		Where("id = ? AND status IN ?", id, openStatuses).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByUserID 获取用户的支付记录
func (r *PaymentRepository) ListByUserID(userID int64, page, pageSize int) ([]*model.Payment, int64, error) {
	var payments []*model.Payment
	var total int64

	query := r.db.Model(&model.Payment{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// List 管理端列表，status 为空时返回全部
func (r *PaymentRepository) List(status string, page, pageSize int) ([]*model.Payment, int64, error) {
	var payments []*model.Payment
	var total int64

	query := r.db.Model(&model.Payment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// SumApproved 已批准支付的总金额
func (r *PaymentRepository) SumApproved() (int64, error) {
	var total int64
	err := r.db.Model(&model.Payment{}).
		Where("status = ?", model.PaymentStatusApproved).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *PaymentRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Payment{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
