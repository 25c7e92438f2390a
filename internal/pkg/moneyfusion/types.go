package moneyfusion

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// 回调事件
const (
	EventCompleted = "payin.session.completed"
	EventPending   = "payin.session.pending"
	EventCancelled = "payin.session.cancelled"
	EventFailed    = "payin.session.failed"
)

// 服务商支付状态
const (
	StatusPaid    = "paid"
	StatusPending = "pending"
	StatusFailure = "failure"
	StatusNoPaid  = "no paid"
)

// EventFromStatus 将 statut 字段翻译为事件名，无法识别时返回空串
func EventFromStatus(status string) string {
	switch status {
	case StatusPaid:
		return EventCompleted
	case StatusPending:
		return EventPending
	case StatusFailure, StatusNoPaid:
		return EventCancelled
	default:
		return ""
	}
}

// FlexString 兼容服务商字段时而为数字、时而为字符串的情况。布尔值视为缺失。
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" || string(b) == "true" || string(b) == "false" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Int64 解析为整数（小数四舍五入），无法解析时返回 0
func (f FlexString) Int64() int64 {
	if f == "" {
		return 0
	}
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return n
	}
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}

// Article 商品行
type Article struct {
	Nom     string `json:"nom"`
	Montant int64  `json:"montant"`
}

// PersonalInfo 创建会话时嵌入的关联信息，回调时原样带回
type PersonalInfo struct {
	UserID    FlexString `json:"userId"`
	Plan      string     `json:"plan"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// InitiateRequest 创建支付会话请求体
type InitiateRequest struct {
	TotalPrice   int64          `json:"totalPrice"`
	Article      []Article      `json:"article"`
	PersonalInfo []PersonalInfo `json:"personal_Info"`
	NumeroSend   string         `json:"numeroSend"`
	NomClient    string         `json:"nomclient"`
	ReturnURL    string         `json:"return_url"`
	WebhookURL   string         `json:"webhook_url"`
}

type initiateResponse struct {
	Statut  bool   `json:"statut"`
	Token   string `json:"token"`
	Message string `json:"message"`
	URL     string `json:"url"`
	Error   string `json:"error"`
}

// Session 创建成功的支付会话
type Session struct {
	PaymentURL   string `json:"payment_url"`
	PaymentToken string `json:"payment_token"`
	Message      string `json:"message"`
}

type statusResponse struct {
	Statut  bool   `json:"statut"`
	Message string `json:"message"`
	Data    struct {
		ID                string     `json:"_id"`
		TokenPay          string     `json:"tokenPay"`
		NumeroTransaction string     `json:"numeroTransaction"`
		Montant           FlexString `json:"Montant"`
		Statut            FlexString `json:"statut"`
		Moyen             string     `json:"moyen"`
	} `json:"data"`
}

// PaymentStatus 服务商侧的支付状态
type PaymentStatus struct {
	Token             string
	Status            string
	Amount            int64
	TransactionNumber string
	Channel           string
}

func (s *PaymentStatus) Paid() bool {
	return s.Status == StatusPaid
}
