package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TransactionTypePayment    = "payment"
	TransactionTypeRefund     = "refund"
	TransactionTypeCommission = "commission"
	TransactionTypePayout     = "payout"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCanceled  = "canceled"
)

// Transaction 资金流水（只追加）。ProviderID 唯一标识一次外部资金事件，用作幂等键。
type Transaction struct {
	ID         int64             `gorm:"primaryKey" json:"id"`
	UserID     int64             `gorm:"not null;index" json:"user_id"`
	Type       string            `gorm:"size:20;not null" json:"type"`
	Amount     int64             `gorm:"not null" json:"amount"`
	Currency   string            `gorm:"size:10;not null;default:XOF" json:"currency"`
	Status     string            `gorm:"size:20;not null;default:pending" json:"status"`
	Provider   string            `gorm:"size:30" json:"provider,omitempty"`
	ProviderID *string           `gorm:"size:100;uniqueIndex" json:"provider_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
