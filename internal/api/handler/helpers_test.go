package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/api/middleware"
	"github.com/qs3c/pronos_server/internal/pkg/authz"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/response"
	"github.com/qs3c/pronos_server/internal/pkg/validate"
	"github.com/qs3c/pronos_server/internal/repository"
	"github.com/qs3c/pronos_server/internal/service"
	"github.com/qs3c/pronos_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validate.Register(); err != nil {
		panic(err)
	}
}

// testContext 本地测试上下文
type testContext struct {
	DB            *gorm.DB
	Cfg           *config.Config
	Provider      *httptest.Server
	Subscriptions *service.SubscriptionService
	Referrals     *service.ReferralService
	Users         *service.UserService
	Auth          *service.AuthService
	Payments      *service.PaymentService
	Webhooks      *service.WebhookService
	Pronos        *service.PronoService
	Admin         *service.AdminService
}

// setupContext providerHandler 模拟 MoneyFusion 接口，为 nil 时返回成功会话
func setupContext(t *testing.T, providerHandler http.HandlerFunc) *testContext {
	t.Helper()

	if providerHandler == nil {
		providerHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"statut":true,"token":"tok_test","message":"ok","url":"https://pay.test/tok_test"}`))
		}
	}
	srv := httptest.NewServer(providerHandler)
	t.Cleanup(srv.Close)

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		JWT:   config.JWTConfig{Secret: "test-secret-key", ExpireHours: 24},
		Admin: config.AdminConfig{Emails: []string{"admin@fixedpronos.com"}},
		Payment: config.PaymentConfig{
			Currency: "XOF",
			MoneyFusion: config.MoneyFusionConfig{
				APIURL:        srv.URL,
				StatusURL:     srv.URL + "/status",
				PublicBaseURL: "https://fixedpronos.test",
			},
		},
		Subscription: config.SubscriptionConfig{
			Plans: map[string]config.PlanConfig{
				"basic": {Price: 500, DisplayName: "BASIC"},
				"pro":   {Price: 8900, DisplayName: "PRO"},
				"vip":   {Price: 19000, DisplayName: "VIP"},
			},
			WebhookPeriodDays: 30,
			CommissionRate:    0.30,
		},
	}
	log := zerolog.Nop()

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	pronoRepo := repository.NewPronoRepository(db)
	client := moneyfusion.NewClient(cfg.Payment.MoneyFusion.APIURL, cfg.Payment.MoneyFusion.StatusURL, cfg.Payment.MoneyFusion.ProviderTimeout())

	ctx := &testContext{DB: db, Cfg: cfg, Provider: srv}
	ctx.Subscriptions = service.NewSubscriptionService(subRepo, log)
	ctx.Referrals = service.NewReferralService(userRepo, txnRepo, cfg.Subscription.CommissionRate, cfg.Payment.Currency, log)
	ctx.Users = service.NewUserService(userRepo, ctx.Subscriptions, authz.NewAdminPolicy(cfg.Admin.Emails))
	ctx.Auth = service.NewAuthService(userRepo, ctx.Users, cfg, log)
	ctx.Payments = service.NewPaymentService(db, paymentRepo, txnRepo, ctx.Subscriptions, ctx.Referrals, client, nil, cfg, log)
	ctx.Webhooks = service.NewWebhookService(db, userRepo, paymentRepo, txnRepo, ctx.Subscriptions, ctx.Referrals, ctx.Payments, service.WebhookOptions{
		PeriodDays: cfg.Subscription.WebhookPeriodDays,
		Plans:      cfg.Subscription.Plans,
	}, log)
	ctx.Pronos = service.NewPronoService(pronoRepo, nil, log)
	ctx.Admin = service.NewAdminService(userRepo, subRepo, paymentRepo, pronoRepo, cfg.Payment.Currency)
	return ctx
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// mockAuth 模拟认证中间件
func mockAuth(userID int64, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.EmailKey, email)
		c.Next()
	}
}

// dataMap 把 data 字段转成 map 方便断言
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
