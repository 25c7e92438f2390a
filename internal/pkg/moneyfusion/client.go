package moneyfusion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

var ErrNotConfigured = errors.New("moneyfusion api url not configured")

// ProviderError 服务商返回失败或响应格式不正确
type ProviderError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("moneyfusion: %s (status %d)", e.Message, e.StatusCode)
}

// Client MoneyFusion HTTP 客户端。只发起一次请求，不重试。
type Client struct {
	httpClient *http.Client
	apiURL     string
	statusURL  string
}

func NewClient(apiURL, statusURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		statusURL:  strings.TrimRight(statusURL, "/"),
	}
}

// NewInitiateRequest 组装创建会话请求
func NewInitiateRequest(userID, amount int64, plan, phone, name, baseURL string, now time.Time) *InitiateRequest {
	base := strings.TrimRight(baseURL, "/")
	return &InitiateRequest{
		TotalPrice: amount,
		Article: []Article{{
			Nom:     fmt.Sprintf("Abonnement %s - FixedPronos", strings.ToUpper(plan)),
			Montant: amount,
		}},
		PersonalInfo: []PersonalInfo{{
			UserID:    FlexString(fmt.Sprintf("%d", userID)),
			Plan:      plan,
			Timestamp: now.UTC().Format(time.RFC3339),
		}},
		NumeroSend: phone,
		NomClient:  name,
		ReturnURL:  base + "/payment/callback",
		WebhookURL: base + "/api/webhooks/moneyfusion",
	}
}

// InitiatePayment 创建支付会话。成功条件：statut 为真且 url、token 均非空
func (c *Client) InitiatePayment(ctx context.Context, req *InitiateRequest) (*Session, error) {
	if c.apiURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal initiate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	status, raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp initiateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ProviderError{StatusCode: status, Message: "invalid response from provider", Body: string(raw)}
	}

	if !resp.Statut || resp.URL == "" || resp.Token == "" {
		msg := firstNonEmpty(resp.Message, resp.Error, "unknown error from provider")
		return nil, &ProviderError{StatusCode: status, Message: msg, Body: string(raw)}
	}

	return &Session{
		PaymentURL:   resp.URL,
		PaymentToken: resp.Token,
		Message:      resp.Message,
	}, nil
}

// CheckStatus 查询支付状态 GET {statusURL}/{token}
func (c *Client) CheckStatus(ctx context.Context, token string) (*PaymentStatus, error) {
	if c.statusURL == "" {
		return nil, ErrNotConfigured
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL+"/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, err
	}

	status, raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &ProviderError{StatusCode: status, Message: "status check failed", Body: string(raw)}
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ProviderError{StatusCode: status, Message: "invalid response from provider", Body: string(raw)}
	}
	if !resp.Statut {
		return nil, &ProviderError{StatusCode: status, Message: firstNonEmpty(resp.Message, "payment not found"), Body: string(raw)}
	}

	return &PaymentStatus{
		Token:             firstNonEmpty(resp.Data.TokenPay, token),
		Status:            resp.Data.Statut.String(),
		Amount:            resp.Data.Montant.Int64(),
		TransactionNumber: resp.Data.NumeroTransaction,
		Channel:           resp.Data.Moyen,
	}, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("moneyfusion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read moneyfusion response: %w", err)
	}
	return resp.StatusCode, raw, nil
}
