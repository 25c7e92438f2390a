package model

import (
	"time"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusApproved   = "approved"
	PaymentStatusRejected   = "rejected"
)

const (
	PaymentMethodMobileMoneyAuto = "mobile_money_auto" // MoneyFusion 自动支付
	PaymentMethodMobileMoney     = "mobile_money"      // 手动转账 + 凭证
	PaymentMethodCrypto          = "crypto"
	PaymentMethodBankTransfer    = "bank_transfer"
)

// Payment 支付记录，状态只能从 pending/processing 流转一次到 approved 或 rejected
type Payment struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Reference      string     `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	UserID         int64      `gorm:"not null;index" json:"user_id"`
	Amount         int64      `gorm:"not null" json:"amount"`
	Currency       string     `gorm:"size:10;not null;default:XOF" json:"currency"`
	Plan           string     `gorm:"size:20" json:"plan"`
	Method         string     `gorm:"size:30;not null" json:"method"`
	ProviderToken  string     `gorm:"size:100;index" json:"provider_token,omitempty"`
	MobileNumber   string     `gorm:"size:30" json:"mobile_number,omitempty"`
	MobileProvider string     `gorm:"size:30" json:"mobile_provider,omitempty"`
	CryptoAddress  string     `gorm:"size:120" json:"crypto_address,omitempty"`
	CryptoTxHash   string     `gorm:"size:120" json:"crypto_tx_hash,omitempty"`
	ProofURL       string     `gorm:"size:500" json:"proof_url,omitempty"`
	Status         string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	ProcessedBy    *int64     `json:"processed_by,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsOpen 是否还可以被审核
func (p *Payment) IsOpen() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusProcessing
}
