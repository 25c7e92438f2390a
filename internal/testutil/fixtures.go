package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	user := &model.User{
		Email:        fmt.Sprintf("user_%d@example.com", n),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		ReferralCode: fmt.Sprintf("REF%05d", n),
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// WithReferralCode 设置推荐码
func WithReferralCode(code string) func(*model.User) {
	return func(u *model.User) {
		u.ReferralCode = code
	}
}

// WithReferrer 设置推荐人
func WithReferrer(referrerID int64) func(*model.User) {
	return func(u *model.User) {
		u.ReferredByID = &referrerID
	}
}

// WithCommission 设置佣金余额
func WithCommission(balance int64) func(*model.User) {
	return func(u *model.User) {
		u.BalanceCommission = balance
	}
}

// TestSubscription 创建测试订阅
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, plan, status string, end time.Time) *model.Subscription {
	t.Helper()

	start := end.AddDate(0, 0, -30)
	sub := &model.Subscription{
		UserID:             userID,
		Plan:               plan,
		Status:             status,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// TestPayment 创建测试支付
func TestPayment(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Payment)) *model.Payment {
	t.Helper()

	payment := &model.Payment{
		Reference: uuid.NewString(),
		UserID:    userID,
		Amount:    8900,
		Currency:  "XOF",
		Plan:      "pro",
		Method:    model.PaymentMethodMobileMoney,
		Status:    model.PaymentStatusPending,
	}

	for _, opt := range opts {
		opt(payment)
	}

	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}

	return payment
}

// WithPlan 设置套餐
func WithPlan(plan string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.Plan = plan
	}
}

// WithAmount 设置金额
func WithAmount(amount int64) func(*model.Payment) {
	return func(p *model.Payment) {
		p.Amount = amount
	}
}

// WithPaymentStatus 设置支付状态
func WithPaymentStatus(status string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.Status = status
	}
}

// WithMethod 设置支付方式
func WithMethod(method string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.Method = method
	}
}

// WithProviderToken 设置服务商 token
func WithProviderToken(token string) func(*model.Payment) {
	return func(p *model.Payment) {
		p.ProviderToken = token
	}
}

// TestTransaction 创建一条已完成的流水
func TestTransaction(t *testing.T, db *gorm.DB, userID int64, providerID string, amount int64) *model.Transaction {
	t.Helper()

	tx := &model.Transaction{
		UserID:     userID,
		Type:       model.TransactionTypePayment,
		Amount:     amount,
		Currency:   "XOF",
		Status:     model.TransactionStatusCompleted,
		Provider:   "moneyfusion",
		ProviderID: &providerID,
	}

	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return tx
}

// TestProno 创建测试预测
func TestProno(t *testing.T, db *gorm.DB, opts ...func(*model.Prono)) *model.Prono {
	t.Helper()

	n := next()
	prono := &model.Prono{
		Title:       fmt.Sprintf("Match %d", n),
		Sport:       "football",
		Competition: "Ligue 1",
		MatchTime:   time.Now().Add(24 * time.Hour),
		HomeTeam:    "ASEC Mimosas",
		AwayTeam:    "Africa Sports",
		Tip:         "1X",
		Odd:         1.85,
		Confidence:  4,
		AccessTier:  "free",
		Content:     "content",
		Analysis:    "analysis",
		Status:      model.PronoStatusPublished,
		Result:      model.PronoResultPending,
	}

	for _, opt := range opts {
		opt(prono)
	}

	if err := db.Create(prono).Error; err != nil {
		t.Fatalf("Failed to create test prono: %v", err)
	}

	return prono
}

// WithAccessTier 设置可见等级
func WithAccessTier(tier string) func(*model.Prono) {
	return func(p *model.Prono) {
		p.AccessTier = tier
	}
}

// WithPronoStatus 设置发布状态
func WithPronoStatus(status string) func(*model.Prono) {
	return func(p *model.Prono) {
		p.Status = status
	}
}

// WithMatchTime 设置比赛时间
func WithMatchTime(at time.Time) func(*model.Prono) {
	return func(p *model.Prono) {
		p.MatchTime = at
	}
}
