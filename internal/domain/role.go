package domain

import "slices"

type Role string

const (
	RoleBasic      Role = "basic"
	RoleAssistant  Role = "assistant"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

// 权限从低到高排列，顺序固定
var roleOrder = []Role{
	RoleBasic,
	RoleAssistant,
	RoleSupervisor,
	RoleManager,
	RoleAdmin,
}

// Roles 返回按权限从低到高排列的全部角色
func Roles() []Role {
	return slices.Clone(roleOrder)
}

// Rank 返回角色在层级中的位置。
// 不在层级中的角色返回 -1，即低于所有已知角色。
func Rank(role Role) int {
	return slices.Index(roleOrder, role)
}

func (r Role) Valid() bool {
	return Rank(r) >= 0
}

// AtLeast 判断 r 是否达到 min 的级别。任意一方未知时都视为不满足。
func (r Role) AtLeast(min Role) bool {
	required := Rank(min)
	if required < 0 {
		return false
	}
	return Rank(r) >= required
}

func (r Role) String() string {
	return string(r)
}
