package dto

// InitiatePaymentRequest 发起 MoneyFusion 支付。字段缺失由服务层统一校验并列出。
type InitiatePaymentRequest struct {
	Amount       int64  `json:"amount"`
	Plan         string `json:"plan"`
	PhoneNumber  string `json:"phone_number"`
	CustomerName string `json:"customer_name"`
}

// InitiatePaymentResponse 支付会话 + 本地待支付记录
type InitiatePaymentResponse struct {
	PaymentURL   string `json:"payment_url"`
	PaymentToken string `json:"payment_token"`
	Message      string `json:"message"`
	Reference    string `json:"reference"`
}

// ManualPaymentRequest 手动支付凭证提交
type ManualPaymentRequest struct {
	Plan           string `json:"plan" binding:"required,plan"`
	Method         string `json:"method" binding:"required,payment_method"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	MobileNumber   string `json:"mobile_number" binding:"max=30"`
	MobileProvider string `json:"mobile_provider" binding:"max=30"`
	CryptoAddress  string `json:"crypto_address" binding:"max=120"`
	CryptoTxHash   string `json:"crypto_tx_hash" binding:"max=120"`
	ProofURL       string `json:"proof_url" binding:"omitempty,url,max=500"`
	Notes          string `json:"notes" binding:"max=1000"`
}

// ListPaymentsQuery 支付列表查询
type ListPaymentsQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending processing approved rejected"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
}

// RejectPaymentRequest 拒绝原因（可选）
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ApprovalResult 审核通过后的结果
type ApprovalResult struct {
	PaymentID   int64  `json:"payment_id"`
	UserID      int64  `json:"user_id"`
	Plan        string `json:"plan"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Commission  int64  `json:"commission"`
	ReferrerID  *int64 `json:"referrer_id,omitempty"`
}
