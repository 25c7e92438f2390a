package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

// Create 追加一条流水。provider_id 重复时返回 gorm.ErrDuplicatedKey
func (r *TransactionRepository) Create(txn *model.Transaction) error {
	return r.db.Create(txn).Error
}

// GetByProviderID 按外部资金事件 ID 查找
func (r *TransactionRepository) GetByProviderID(providerID string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.Where("provider_id = ?", providerID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ExistsCompleted 该外部事件是否已经入账
func (r *TransactionRepository) ExistsCompleted(providerID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Transaction{}).
		Where("provider_id = ? AND status = ?", providerID, model.TransactionStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *TransactionRepository) ListByUserID(userID int64, limit int) ([]*model.Transaction, error) {
	var txns []*model.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// SumByType 某用户某类流水的合计（用于佣金汇总）
func (r *TransactionRepository) SumByType(userID int64, txnType string) (int64, error) {
	var total int64
	err := r.db.Model(&model.Transaction{}).
		Where("user_id = ? AND type = ? AND status = ?", userID, txnType, model.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
