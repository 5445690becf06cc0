package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

func session(role domain.Role, min domain.Role) domain.Session {
	return domain.Session{
		User:           &domain.User{ID: 1, Username: "alice", Role: role},
		UserRole:       role,
		MinAccessLevel: min,
	}
}

func TestDecideGrantsIffRankAtLeastRequired(t *testing.T) {
	for _, r1 := range domain.Roles() {
		for _, r2 := range domain.Roles() {
			d := Decide(session(r1, r2), "")
			if domain.Rank(r1) >= domain.Rank(r2) {
				assert.Equal(t, Render, d.Outcome, "%s vs %s", r1, r2)
			} else {
				assert.Equal(t, Redirect, d.Outcome, "%s vs %s", r1, r2)
			}
		}
	}
}

func TestDecideUnknownRoleNeverGrants(t *testing.T) {
	for _, min := range domain.Roles() {
		d := Decide(session("owner", min), "")
		assert.Equal(t, Redirect, d.Outcome, min)
		assert.Equal(t, LoginPath, d.Target)
	}
}

func TestDecideLoadingNeverRendersOrRedirects(t *testing.T) {
	cases := []domain.Session{
		{Loading: true},
		{Loading: true, MinAccessLevel: domain.RoleAdmin},
		{Loading: true, User: &domain.User{ID: 1}, UserRole: domain.RoleAdmin, MinAccessLevel: domain.RoleBasic},
	}
	for _, s := range cases {
		d := Decide(s, "")
		assert.Equal(t, Loading, d.Outcome)
		assert.Empty(t, d.Target)
	}
}

func TestDecideSupervisorBelowManagerRedirects(t *testing.T) {
	d := Decide(session(domain.RoleSupervisor, domain.RoleManager), "")
	assert.Equal(t, Decision{Outcome: Redirect, Target: "/login", Replace: true}, d)
}

func TestDecideAdminAlwaysRenders(t *testing.T) {
	for _, min := range domain.Roles() {
		assert.Equal(t, Render, Decide(session(domain.RoleAdmin, min), "").Outcome)
	}
}

func TestDecideMissingIdentityOrRole(t *testing.T) {
	noUser := domain.Session{UserRole: domain.RoleAdmin, MinAccessLevel: domain.RoleBasic}
	assert.Equal(t, Redirect, Decide(noUser, "").Outcome)

	noRole := domain.Session{User: &domain.User{ID: 1}, MinAccessLevel: domain.RoleBasic}
	assert.Equal(t, Redirect, Decide(noRole, "").Outcome)
}

func TestDecideExplicitMinOverridesSession(t *testing.T) {
	s := session(domain.RoleAssistant, domain.RoleBasic)
	assert.Equal(t, Redirect, Decide(s, domain.RoleManager).Outcome)
	assert.Equal(t, Render, Decide(s, domain.RoleAssistant).Outcome)
}
