// Package tier 实现内容访问等级的层级判断：FREE < BASIC < PRO < VIP。
//
// 所有函数都是纯函数，对任意输入都有定义；无法识别的等级一律按 free 处理。
package tier

import (
	"fmt"
	"strings"
)

type Tier string

const (
	Free  Tier = "free"
	Basic Tier = "basic"
	Pro   Tier = "pro"
	VIP   Tier = "vip"
)

// All 按等级从低到高排列
var All = []Tier{Free, Basic, Pro, VIP}

var levels = map[Tier]int{
	Free:  0,
	Basic: 1,
	Pro:   2,
	VIP:   3,
}

var labels = map[Tier]string{
	Free:  "GRATUIT",
	Basic: "BASIC",
	Pro:   "PRO",
	VIP:   "VIP",
}

// 套餐状态，与 model.SubscriptionStatusActive 保持一致
const statusActive = "active"

// Normalize 将任意字符串规范化为合法等级。
// 旧的 safe / risk 类型、空串和未知值都视为 free。
func Normalize(s string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levels[t]; ok {
		return t
	}
	return Free
}

// Level 返回等级数值，未知等级为 0
func Level(t Tier) int {
	return levels[Normalize(string(t))]
}

// IsPaidPlan 是否为可购买的套餐（basic / pro / vip）
func IsPaidPlan(plan string) bool {
	t := Tier(strings.ToLower(strings.TrimSpace(plan)))
	return t == Basic || t == Pro || t == VIP
}

// CanAccess 用户等级 >= 内容要求等级时可访问
func CanAccess(viewer, required Tier) bool {
	return Level(viewer) >= Level(required)
}

// FromSubscription 根据订阅状态和套餐计算用户当前等级。
// 非 active 状态一律为 free，套餐字段不合法时同样为 free。
func FromSubscription(status, plan string) Tier {
	if status != statusActive {
		return Free
	}
	if !IsPaidPlan(plan) {
		return Free
	}
	return Tier(strings.ToLower(strings.TrimSpace(plan)))
}

// Label 展示用名称
func Label(t Tier) string {
	return labels[Normalize(string(t))]
}

// AccessResult 访问检查结果
type AccessResult struct {
	CanAccess     bool   `json:"can_access"`
	IsLocked      bool   `json:"is_locked"`
	RequiredTier  Tier   `json:"required_tier"`
	UserTier      Tier   `json:"user_tier"`
	UnlockMessage string `json:"unlock_message,omitempty"`
	CTAText       string `json:"cta_text,omitempty"`
}

// Check 检查访问权限并返回完整的展示信息
func Check(viewer, required Tier) AccessResult {
	viewer = Normalize(string(viewer))
	required = Normalize(string(required))
	ok := CanAccess(viewer, required)

	res := AccessResult{
		CanAccess:    ok,
		IsLocked:     !ok,
		RequiredTier: required,
		UserTier:     viewer,
	}
	if !ok {
		res.UnlockMessage = fmt.Sprintf("Ce pronostic est réservé aux abonnés %s", Label(required))
		res.CTAText = fmt.Sprintf("Passer à %s", Label(required))
	}
	return res
}

// Accessible 返回用户可访问的全部等级（从低到高）
func Accessible(viewer Tier) []Tier {
	limit := Level(viewer)
	out := make([]Tier, 0, len(All))
	for _, t := range All {
		if levels[t] <= limit {
			out = append(out, t)
		}
	}
	return out
}

// ShouldShowPartialPreview 无权访问时只展示部分内容
func ShouldShowPartialPreview(viewer, required Tier) bool {
	return !CanAccess(viewer, required)
}
