package dto

// StatsResponse 管理后台统计
type StatsResponse struct {
	Users               int64  `json:"users"`
	ActiveSubscriptions int64  `json:"active_subscriptions"`
	PendingPayments     int64  `json:"pending_payments"`
	ApprovedRevenue     int64  `json:"approved_revenue"`
	PublishedPronos     int64  `json:"published_pronos"`
	Currency            string `json:"currency"`
}
