package dto

// SubscriptionInfo 当前订阅及由此得出的访问等级
type SubscriptionInfo struct {
	Plan               string   `json:"plan"`
	Status             string   `json:"status"`
	CurrentPeriodStart string   `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   string   `json:"current_period_end,omitempty"`
	AutoRenew          bool     `json:"auto_renew"`
	DaysLeft           int      `json:"days_left"`
	Tier               string   `json:"tier"`
	AccessibleTiers    []string `json:"accessible_tiers"`
}

// PlanInfo 套餐目录
type PlanInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
}

// ReferralSummary 推荐汇总
type ReferralSummary struct {
	ReferralCode      string  `json:"referral_code"`
	BalanceCommission int64   `json:"balance_commission"`
	ReferralCount     int64   `json:"referral_count"`
	TotalEarned       int64   `json:"total_earned"`
	CommissionRate    float64 `json:"commission_rate"`
}
