package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/pronos_server/internal/model"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/response"
	"github.com/qs3c/pronos_server/internal/testutil"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, *testContext) {
	t.Helper()

	ctx := setupContext(t, nil)
	handler := NewAuthHandler(ctx.Auth)

	router := gin.New()
	router.POST("/register", handler.Register)
	router.POST("/login", handler.Login)
	return router, ctx
}

func TestAuthHandler_Register_Success(t *testing.T) {
	router, _ := setupAuthRouter(t)

	w := performRequest(router, "POST", "/register", dto.RegisterRequest{
		Email:     "awa@example.com",
		Password:  "password123",
		FirstName: "Awa",
		LastName:  "Kone",
	})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Len(t, data["referral_code"], 8)
}

func TestAuthHandler_Register_WithReferralCode(t *testing.T) {
	router, ctx := setupAuthRouter(t)
	referrer := testutil.TestUser(t, ctx.DB, testutil.WithReferralCode("ABCD1234"))

	w := performRequest(router, "POST", "/register", dto.RegisterRequest{
		Email:        "filleul@example.com",
		Password:     "password123",
		ReferralCode: "abcd1234",
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var user model.User
	require.NoError(t, ctx.DB.Where("email = ?", "filleul@example.com").First(&user).Error)
	require.NotNil(t, user.ReferredByID)
	assert.Equal(t, referrer.ID, *user.ReferredByID)
}

func TestAuthHandler_Register_Errors(t *testing.T) {
	router, ctx := setupAuthRouter(t)
	testutil.TestUser(t, ctx.DB, testutil.WithEmail("taken@example.com"))

	tests := []struct {
		name string
		req  dto.RegisterRequest
		code int
	}{
		{"invalid email", dto.RegisterRequest{Email: "nope", Password: "password123"}, response.CodeParamError},
		{"short password", dto.RegisterRequest{Email: "a@example.com", Password: "short"}, response.CodeParamError},
		{"duplicate email", dto.RegisterRequest{Email: "taken@example.com", Password: "password123"}, response.CodeDuplicateAction},
		{"unknown referral code", dto.RegisterRequest{Email: "b@example.com", Password: "password123", ReferralCode: "ZZZZZZZZ"}, response.CodeParamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/register", tt.req)
			resp := parseResponse(t, w)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	router, _ := setupAuthRouter(t)

	w := performRequest(router, "POST", "/register", dto.RegisterRequest{
		Email:    "login@example.com",
		Password: "password123",
	})
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	w = performRequest(router, "POST", "/login", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "password123",
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.NotEmpty(t, data["token"])
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "free", user["tier"])

	w = performRequest(router, "POST", "/login", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "wrong-password",
	})
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}
