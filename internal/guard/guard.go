// Package guard 决定一个受保护页面该渲染、显示加载状态还是跳转到登录页。
package guard

import "github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"

const LoginPath = "/login"

type Outcome int

const (
	Render Outcome = iota
	Loading
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

type Decision struct {
	Outcome Outcome
	// 仅在 Redirect 时有值
	Target string
	// 跳转时替换当前历史记录，返回键不会回到受保护页面
	Replace bool
}

// Decide 是纯函数：只看会话和要求的最低角色，没有状态也没有 I/O。
// min 为空时使用会话里的 MinAccessLevel。
func Decide(s domain.Session, min domain.Role) Decision {
	if s.Loading {
		return Decision{Outcome: Loading}
	}

	if min == "" {
		min = s.MinAccessLevel
	}

	if s.User == nil || s.UserRole == "" || !s.UserRole.AtLeast(min) {
		return Decision{Outcome: Redirect, Target: LoginPath, Replace: true}
	}

	return Decision{Outcome: Render}
}
