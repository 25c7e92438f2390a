package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/pkg/lock"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/pubsub"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
	"github.com/qs3c/pronos_server/internal/testutil"
)

func completedNotification(userID int64, token string) moneyfusion.Notification {
	return moneyfusion.Notification{
		Event:  moneyfusion.EventCompleted,
		Token:  token,
		Amount: 8900,
		UserID: userID,
		Plan:   "pro",
		Phone:  "0700000000",
		Name:   "Awa Kone",
	}
}

func countRows(t *testing.T, env *testEnv, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(m).Count(&n).Error)
	return n
}

func TestWebhookService_Completed_ActivatesAndIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)
	n := completedNotification(buyer.ID, "tok-pro")

	outcome, err := env.webhooks.Reconcile(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)

	sub, err := env.subRepo.GetByUserID(buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "pro", sub.Plan)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.CurrentPeriodStart.Equal(testNow))
	assert.True(t, sub.CurrentPeriodEnd.Equal(testNow.Add(30*24*time.Hour)))

	txn, err := env.txnRepo.GetByProviderID("tok-pro")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, int64(8900), txn.Amount)
	assert.Equal(t, "pro", txn.Metadata["plan"])
	assert.Equal(t, "mobile_money", txn.Metadata["payment_method"])

	var payment model.Payment
	require.NoError(t, env.db.Where("provider_token = ?", "tok-pro").First(&payment).Error)
	assert.Equal(t, model.PaymentStatusApproved, payment.Status)
	assert.Contains(t, payment.Notes, "MoneyFusion Token: tok-pro")
	assert.Contains(t, payment.Notes, "Client: Awa Kone")

	// 重放同一条回调不产生任何变化
	outcome, err = env.webhooks.Reconcile(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, outcome)

	assert.Equal(t, int64(1), countRows(t, env, &model.Payment{}))
	assert.Equal(t, int64(1), countRows(t, env, &model.Transaction{}))
	again, err := env.subRepo.GetByUserID(buyer.ID)
	require.NoError(t, err)
	assert.True(t, again.CurrentPeriodEnd.Equal(testNow.Add(30*24*time.Hour)))
	assert.Equal(t, []string{pubsub.TypeSubscriptionActivated}, env.notifier.types())
}

func TestWebhookService_Completed_ExtendsFromFutureEnd(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)
	end := testNow.Add(10 * 24 * time.Hour)
	testutil.TestSubscription(t, env.db, buyer.ID, "pro", model.SubscriptionStatusActive, end)

	_, err := env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-ext"))
	require.NoError(t, err)

	sub, err := env.subRepo.GetByUserID(buyer.ID)
	require.NoError(t, err)
	assert.True(t, sub.CurrentPeriodStart.Equal(end))
	assert.True(t, sub.CurrentPeriodEnd.Equal(testNow.Add(40*24*time.Hour)))
}

func TestWebhookService_Completed_CreditsReferrer(t *testing.T) {
	env := setupEnv(t)
	referrer := testutil.TestUser(t, env.db)
	buyer := testutil.TestUser(t, env.db, testutil.WithReferrer(referrer.ID))

	_, err := env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-ref"))
	require.NoError(t, err)
	_, err = env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-ref"))
	require.NoError(t, err)

	r, err := env.userRepo.GetByID(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2670), r.BalanceCommission)
	assert.ElementsMatch(t, []string{pubsub.TypeSubscriptionActivated, pubsub.TypeCommissionCredited}, env.notifier.types())
}

func TestWebhookService_MissingFields(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)

	tests := []struct {
		name   string
		mutate func(*moneyfusion.Notification)
		want   error
	}{
		{"no user", func(n *moneyfusion.Notification) { n.UserID = 0 }, ErrWebhookMissingUser},
		{"no plan", func(n *moneyfusion.Notification) { n.Plan = "" }, ErrWebhookMissingUser},
		{"no token", func(n *moneyfusion.Notification) { n.Token = "" }, ErrWebhookMissingToken},
		{"no amount", func(n *moneyfusion.Notification) { n.Amount = 0 }, ErrWebhookMissingAmount},
		{"pending without token", func(n *moneyfusion.Notification) {
			n.Event = moneyfusion.EventPending
			n.Token = ""
		}, ErrWebhookMissingToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := completedNotification(buyer.ID, "tok-missing")
			tt.mutate(&n)
			_, err := env.webhooks.Reconcile(context.Background(), n)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, countRows(t, env, &model.Payment{}))
	assert.Zero(t, countRows(t, env, &model.Transaction{}))
	assert.Zero(t, countRows(t, env, &model.Subscription{}))
}

func TestWebhookService_InvalidPlanAndUnknownUser(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)

	n := completedNotification(buyer.ID, "tok-gold")
	n.Plan = "gold"
	_, err := env.webhooks.Reconcile(context.Background(), n)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = env.webhooks.Reconcile(context.Background(), completedNotification(9999, "tok-ghost"))
	assert.ErrorIs(t, err, ErrWebhookUnknownUser)

	// 事务回滚，不留下支付记录
	assert.Zero(t, countRows(t, env, &model.Payment{}))
	assert.Zero(t, countRows(t, env, &model.Transaction{}))
}

func TestWebhookService_Completed_AmountBelowPlanPrice(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)

	n := completedNotification(buyer.ID, "tok-cheap")
	n.Plan = "vip"
	n.Amount = 1
	_, err := env.webhooks.Reconcile(context.Background(), n)
	assert.ErrorIs(t, err, ErrWebhookUnderpaid)

	tierNow, err := env.subscriptions.GetUserTier(buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, tier.Free, tierNow)
	assert.Zero(t, countRows(t, env, &model.Payment{}))
	assert.Zero(t, countRows(t, env, &model.Transaction{}))
	assert.Zero(t, countRows(t, env, &model.Subscription{}))
}

func TestWebhookService_Completed_ConcurrentInsertRollsBack(t *testing.T) {
	env := setupEnv(t)
	referrer := testutil.TestUser(t, env.db)
	buyer := testutil.TestUser(t, env.db, testutil.WithReferrer(referrer.ID))

	// 另一次投递已写入佣金流水，但主流水尚未可见：幂等检查放行，事务内撞唯一索引
	testutil.TestTransaction(t, env.db, referrer.ID, "commission:tok-race", 2670)

	outcome, err := env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-race"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, outcome)

	// 整个事务回滚
	assert.Zero(t, countRows(t, env, &model.Payment{}))
	assert.Zero(t, countRows(t, env, &model.Subscription{}))
	assert.Equal(t, int64(1), countRows(t, env, &model.Transaction{}))
	r, err := env.userRepo.GetByID(referrer.ID)
	require.NoError(t, err)
	assert.Zero(t, r.BalanceCommission)
	assert.Empty(t, env.notifier.types())
}

func TestWebhookService_NonCompletedEvents(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)

	tests := []struct {
		event string
		want  Outcome
	}{
		{moneyfusion.EventPending, OutcomePending},
		{moneyfusion.EventCancelled, OutcomeCancelled},
		{moneyfusion.EventFailed, OutcomeCancelled},
		{"payin.session.unknown", OutcomeIgnored},
		{"", OutcomeIgnored},
	}

	for _, tt := range tests {
		n := completedNotification(buyer.ID, "tok-other")
		n.Event = tt.event
		outcome, err := env.webhooks.Reconcile(context.Background(), n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, outcome, tt.event)
	}

	assert.Zero(t, countRows(t, env, &model.Payment{}))
	assert.Zero(t, countRows(t, env, &model.Subscription{}))
}

func TestWebhookService_VerifyWithProvider(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)
	env.webhooks.verify = true

	env.provider.status = &moneyfusion.PaymentStatus{Token: "tok-v", Status: moneyfusion.StatusPending}
	_, err := env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-v"))
	assert.ErrorIs(t, err, ErrWebhookUnverified)
	assert.Zero(t, countRows(t, env, &model.Subscription{}))

	env.provider.status = &moneyfusion.PaymentStatus{Token: "tok-v", Status: moneyfusion.StatusPaid}
	outcome, err := env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-v"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)
	assert.Equal(t, []string{"tok-v", "tok-v"}, env.provider.statusFor)
}

func TestWebhookService_LockHeld(t *testing.T) {
	env := setupEnv(t)
	buyer := testutil.TestUser(t, env.db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := lock.NewLocker(client, "pronos:lock:")
	env.webhooks.locker = locker

	held, err := locker.Acquire(context.Background(), "webhook:tok-lock", time.Minute)
	require.NoError(t, err)

	_, err = env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-lock"))
	assert.ErrorIs(t, err, ErrWebhookInProgress)
	assert.Zero(t, countRows(t, env, &model.Subscription{}))

	require.NoError(t, held.Release(context.Background()))
	outcome, err := env.webhooks.Reconcile(context.Background(), completedNotification(buyer.ID, "tok-lock"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)
}
