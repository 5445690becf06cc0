package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/phone"
)

func TestGenerateRandomRoleIsKnown(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.True(t, GenerateRandomRole().Valid())
	}
}

func TestGenerateRandomNANPPhone(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := GenerateRandomNANPPhone()
		require.Len(t, p, 10)
		assert.NotContains(t, "01", string(p[0]))
		assert.NotContains(t, "01", string(p[3]))
		assert.Equal(t, "+1"+p, phone.FormatStorage(p))
	}
}

func TestGenerateRandomUserForClient(t *testing.T) {
	clientID := int64(7)
	user, err := GenerateRandomUser("secret", "example.com", &clientID)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleBasic, user.Role)
	assert.Equal(t, &clientID, user.ClientID)
	assert.Contains(t, user.Email, "@example.com")
	assert.NotEqual(t, "secret", user.PasswordHash)
}

func TestGenerateRandomSocialMetrics(t *testing.T) {
	metrics := GenerateRandomSocialMetrics(3, 5)
	require.Len(t, metrics, 5)

	for i, m := range metrics {
		assert.Equal(t, int64(3), m.ClientID)
		assert.Equal(t, metrics[0].Platform, m.Platform)
		if i > 0 {
			assert.GreaterOrEqual(t, *m.Followers, *metrics[i-1].Followers)
			assert.True(t, m.RecordedAt.After(metrics[i-1].RecordedAt))
		}
	}
}

func TestGenerateRandomContentApprovalIsPending(t *testing.T) {
	a := GenerateRandomContentApproval(1, 2)
	assert.Equal(t, domain.ApprovalPending, a.Status)
	assert.Nil(t, a.DecidedBy)
	require.NotNil(t, a.ScheduledFor)
}
