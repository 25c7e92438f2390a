package authz

import (
	"strings"
	"sync"
)

// AdminPolicy 管理员白名单。比较为精确匹配，大小写敏感；
// 配置中的空白会被去掉，空项忽略。
type AdminPolicy struct {
	mu     sync.RWMutex
	emails map[string]struct{}
}

func NewAdminPolicy(emails []string) *AdminPolicy {
	p := &AdminPolicy{}
	p.Replace(emails)
	return p
}

// IsAdmin 空邮箱永远不是管理员
func (p *AdminPolicy) IsAdmin(email string) bool {
	if email == "" {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.emails[email]
	return ok
}

// Replace 整体替换白名单（配置热更新时调用）
func (p *AdminPolicy) Replace(emails []string) {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.TrimSpace(e); e != "" {
			set[e] = struct{}{}
		}
	}
	p.mu.Lock()
	p.emails = set
	p.mu.Unlock()
}

func (p *AdminPolicy) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.emails)
}
