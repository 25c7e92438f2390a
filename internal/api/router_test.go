package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/api/handler"
	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/pkg/authz"
	"github.com/qs3c/pronos_server/internal/pkg/jwt"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/response"
	"github.com/qs3c/pronos_server/internal/pkg/validate"
	"github.com/qs3c/pronos_server/internal/pkg/ws"
	"github.com/qs3c/pronos_server/internal/repository"
	"github.com/qs3c/pronos_server/internal/service"
	"github.com/qs3c/pronos_server/internal/testutil"
)

const testSecret = "router-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	if err := validate.Register(); err != nil {
		panic(err)
	}
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "test"},
		JWT:     config.JWTConfig{Secret: testSecret, ExpireHours: 1},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Admin:   config.AdminConfig{Emails: []string{"admin@fixedpronos.com"}},
		Payment: config.PaymentConfig{Currency: "XOF"},
		Subscription: config.SubscriptionConfig{
			Plans: map[string]config.PlanConfig{
				"basic": {Price: 500},
				"pro":   {Price: 8900},
				"vip":   {Price: 19000},
			},
			WebhookPeriodDays: 30,
			CommissionRate:    0.30,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	log := zerolog.Nop()
	policy := authz.NewAdminPolicy(cfg.Admin.Emails)

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	pronoRepo := repository.NewPronoRepository(db)

	subscriptions := service.NewSubscriptionService(subRepo, log)
	referrals := service.NewReferralService(userRepo, txnRepo, cfg.Subscription.CommissionRate, cfg.Payment.Currency, log)
	users := service.NewUserService(userRepo, subscriptions, policy)
	auth := service.NewAuthService(userRepo, users, cfg, log)
	provider := moneyfusion.NewClient("http://127.0.0.1:0", "http://127.0.0.1:0", time.Second)
	payments := service.NewPaymentService(db, paymentRepo, txnRepo, subscriptions, referrals, provider, nil, cfg, log)
	webhooks := service.NewWebhookService(db, userRepo, paymentRepo, txnRepo, subscriptions, referrals, payments, service.WebhookOptions{Plans: cfg.Subscription.Plans}, log)
	pronos := service.NewPronoService(pronoRepo, nil, log)
	admin := service.NewAdminService(userRepo, subRepo, paymentRepo, pronoRepo, cfg.Payment.Currency)

	router := NewRouter(
		handler.NewAuthHandler(auth),
		handler.NewUserHandler(users, subscriptions, referrals),
		handler.NewPlansHandler(cfg),
		handler.NewPronoHandler(pronos),
		handler.NewPaymentHandler(payments),
		handler.NewWebhookHandler(webhooks, log),
		handler.NewAdminHandler(admin, payments, pronos),
		handler.NewWebSocketHandler(ws.NewHub(log), cfg.JWT.Secret, cfg.CORS.AllowedOrigins, log),
		subscriptions,
		policy,
		cfg,
		log,
	)
	return &testServer{engine: router.Setup(), db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(user.ID, user.Email, testSecret, 1)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRouter_Health(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouter_PlansPublic(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/plans", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, decode(t, w).Code)
}

func TestRouter_PronosAnonymous(t *testing.T) {
	s := setupServer(t)
	testutil.TestProno(t, s.db, testutil.WithAccessTier("vip"), testutil.WithPronoStatus(model.PronoStatusPublished))

	w := s.do(t, http.MethodGet, "/api/v1/pronos", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, decode(t, w).Code)
	assert.NotContains(t, w.Body.String(), `"tip":"`)
}

func TestRouter_UserRoutesRequireToken(t *testing.T) {
	s := setupServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/user/profile"},
		{http.MethodGet, "/api/v1/user/subscription"},
		{http.MethodGet, "/api/v1/payments"},
		{http.MethodPost, "/api/v1/payments/manual"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, response.CodeAuthFailed, decode(t, w).Code)
		})
	}
}

func TestRouter_AdminGuard(t *testing.T) {
	s := setupServer(t)
	member := testutil.TestUser(t, s.db, testutil.WithEmail("member@example.com"))
	admin := testutil.TestUser(t, s.db, testutil.WithEmail("admin@fixedpronos.com"))

	t.Run("无 token", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/admin/stats", "", nil)
		assert.Equal(t, response.CodeAuthFailed, decode(t, w).Code)
	})

	t.Run("非管理员", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/admin/stats", tokenFor(t, member), nil)
		assert.Equal(t, response.CodePermissionDenied, decode(t, w).Code)
	})

	t.Run("管理员", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/admin/stats", tokenFor(t, admin), nil)
		assert.Equal(t, response.CodeSuccess, decode(t, w).Code)
	})
}

func TestRouter_AdminApproveEndToEnd(t *testing.T) {
	s := setupServer(t)
	admin := testutil.TestUser(t, s.db, testutil.WithEmail("admin@fixedpronos.com"))
	buyer := testutil.TestUser(t, s.db)
	payment := testutil.TestPayment(t, s.db, buyer.ID, testutil.WithPlan("pro"), testutil.WithAmount(8900))

	path := "/api/v1/admin/payments/" + strconv.FormatInt(payment.ID, 10) + "/approve"
	w := s.do(t, http.MethodPost, path, tokenFor(t, admin), nil)
	require.Equal(t, response.CodeSuccess, decode(t, w).Code)

	again := s.do(t, http.MethodPost, path, tokenFor(t, admin), nil)
	assert.Equal(t, response.CodeDuplicateAction, decode(t, again).Code)
}

func TestRouter_WebhookMountedWithoutAuth(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/webhooks/moneyfusion", "", map[string]interface{}{
		"event": "payin.session.pending",
	})

	// 缺少用户信息返回 400，而不是 JWT 认证失败
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing user information")
}
