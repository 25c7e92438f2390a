package moneyfusion

import (
	"strconv"
	"strings"
)

// WebhookFields 回调里的业务字段。服务商可能平铺在顶层，也可能嵌套在 data 下。
type WebhookFields struct {
	PersonalInfo      []PersonalInfo `json:"personal_Info"`
	TokenPay          string         `json:"tokenPay"`
	NumeroSend        FlexString     `json:"numeroSend"`
	NomClient         string         `json:"nomclient"`
	NumeroTransaction string         `json:"numeroTransaction"`
	Montant           FlexString     `json:"Montant"`
	Statut            FlexString     `json:"statut"`
}

// WebhookPayload 回调请求体
type WebhookPayload struct {
	Event string `json:"event"`
	WebhookFields
	Data *WebhookFields `json:"data"`
}

// Notification 归一化后的回调
type Notification struct {
	Event             string
	Token             string
	Amount            int64
	UserID            int64
	Plan              string
	Phone             string
	Name              string
	TransactionNumber string
}

// Normalize 顶层字段优先，缺失时取 data 下的同名字段；
// 没有 event 时由 statut 推导。
func (p *WebhookPayload) Normalize() Notification {
	nested := p.Data
	if nested == nil {
		nested = &WebhookFields{}
	}

	info := p.PersonalInfo
	if len(info) == 0 {
		info = nested.PersonalInfo
	}

	n := Notification{
		Event:             p.Event,
		Token:             firstNonEmpty(p.TokenPay, nested.TokenPay),
		Amount:            firstFlex(p.Montant, nested.Montant).Int64(),
		Phone:             firstFlex(p.NumeroSend, nested.NumeroSend).String(),
		Name:              firstNonEmpty(p.NomClient, nested.NomClient),
		TransactionNumber: firstNonEmpty(p.NumeroTransaction, nested.NumeroTransaction),
	}

	if n.Event == "" {
		n.Event = EventFromStatus(firstFlex(p.Statut, nested.Statut).String())
	}

	if len(info) > 0 {
		n.Plan = strings.TrimSpace(info[0].Plan)
		if id, err := strconv.ParseInt(info[0].UserID.String(), 10, 64); err == nil && id > 0 {
			n.UserID = id
		}
	}

	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstFlex(values ...FlexString) FlexString {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
