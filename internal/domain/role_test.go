package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankFollowsFixedOrder(t *testing.T) {
	for i, role := range Roles() {
		assert.Equal(t, i, Rank(role), role)
		assert.True(t, role.Valid())
	}
	assert.Equal(t, []Role{RoleBasic, RoleAssistant, RoleSupervisor, RoleManager, RoleAdmin}, Roles())
}

func TestRankUnknownRoleIsBelowAll(t *testing.T) {
	assert.Equal(t, -1, Rank("owner"))
	assert.Equal(t, -1, Rank(""))
	assert.False(t, Role("owner").Valid())

	for _, role := range Roles() {
		assert.Less(t, Rank("owner"), Rank(role))
	}
}

func TestAtLeast(t *testing.T) {
	for _, r1 := range Roles() {
		for _, r2 := range Roles() {
			assert.Equal(t, Rank(r1) >= Rank(r2), r1.AtLeast(r2), "%s >= %s", r1, r2)
		}
	}

	assert.False(t, Role("superuser").AtLeast(RoleBasic))
	assert.False(t, RoleAdmin.AtLeast("superuser"))
}

func TestRolesReturnsCopy(t *testing.T) {
	roles := Roles()
	roles[0] = RoleAdmin
	assert.Equal(t, RoleBasic, Roles()[0])
}
