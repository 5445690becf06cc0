package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

type fakeUsers struct {
	users map[int64]*domain.User
	err   error
}

func (f *fakeUsers) GetUserByIDContext(ctx context.Context, id int64) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type fakeRevoker struct {
	revoked map[string]time.Time
	err     error
}

func (f *fakeRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func (f *fakeRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	f.revoked[tokenID] = until
	return nil
}

const secret = "test-secret"

func newProvider(users *fakeUsers, rv *fakeRevoker) *CookieProvider {
	return NewCookieProvider(secret, users, rv, time.Second).ForApp(domain.RoleAssistant)
}

func requestWithToken(t *testing.T, p *CookieProvider, user *domain.User) *http.Request {
	t.Helper()
	token, err := p.Issue(user, time.Now().Add(time.Hour))
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	return r
}

func TestSessionWithoutCookie(t *testing.T) {
	p := newProvider(&fakeUsers{}, &fakeRevoker{revoked: map[string]time.Time{}})

	s := p.Session(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, s.User)
	assert.Empty(t, s.UserRole)
	assert.False(t, s.Loading)
	assert.Equal(t, domain.RoleAssistant, s.MinAccessLevel)
}

func TestSessionResolvesUser(t *testing.T) {
	alice := &domain.User{ID: 7, Username: "alice", Role: domain.RoleManager, IsActive: true}
	p := newProvider(&fakeUsers{users: map[int64]*domain.User{7: alice}}, &fakeRevoker{revoked: map[string]time.Time{}})

	s := p.Session(requestWithToken(t, p, alice))
	require.NotNil(t, s.User)
	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, domain.RoleManager, s.UserRole)
	assert.False(t, s.Loading)
}

func TestSessionUsesStoredRoleNotTokenRole(t *testing.T) {
	stored := &domain.User{ID: 7, Role: domain.RoleBasic, IsActive: true}
	p := newProvider(&fakeUsers{users: map[int64]*domain.User{7: stored}}, &fakeRevoker{revoked: map[string]time.Time{}})

	r := requestWithToken(t, p, &domain.User{ID: 7, Role: domain.RoleAdmin})
	assert.Equal(t, domain.RoleBasic, p.Session(r).UserRole)
}

func TestSessionLookupTimeoutIsLoading(t *testing.T) {
	alice := &domain.User{ID: 7, Role: domain.RoleManager, IsActive: true}
	p := newProvider(&fakeUsers{err: context.DeadlineExceeded}, &fakeRevoker{revoked: map[string]time.Time{}})

	s := p.Session(requestWithToken(t, p, alice))
	assert.True(t, s.Loading)
	assert.Nil(t, s.User)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestSessionNetworkTimeoutIsLoading(t *testing.T) {
	alice := &domain.User{ID: 7, Role: domain.RoleManager, IsActive: true}
	netTimeout := fmt.Errorf("read tcp 127.0.0.1:6379: %w", timeoutError{})

	p := newProvider(&fakeUsers{err: netTimeout}, &fakeRevoker{revoked: map[string]time.Time{}})
	s := p.Session(requestWithToken(t, p, alice))
	assert.True(t, s.Loading)
	assert.Nil(t, s.User)

	p = newProvider(&fakeUsers{users: map[int64]*domain.User{7: alice}}, &fakeRevoker{err: netTimeout})
	s = p.Session(requestWithToken(t, p, alice))
	assert.True(t, s.Loading)
	assert.Nil(t, s.User)
}

func TestSessionOtherErrorsAreSignedOut(t *testing.T) {
	alice := &domain.User{ID: 7, Role: domain.RoleManager, IsActive: true}
	p := newProvider(&fakeUsers{err: errors.New("connection refused")}, &fakeRevoker{revoked: map[string]time.Time{}})

	s := p.Session(requestWithToken(t, p, alice))
	assert.False(t, s.Loading)
	assert.Nil(t, s.User)
}

func TestSessionInactiveOrMissingUser(t *testing.T) {
	left := &domain.User{ID: 7, Role: domain.RoleManager, IsActive: false}
	p := newProvider(&fakeUsers{users: map[int64]*domain.User{7: left}}, &fakeRevoker{revoked: map[string]time.Time{}})

	assert.Nil(t, p.Session(requestWithToken(t, p, left)).User)
	assert.Nil(t, p.Session(requestWithToken(t, p, &domain.User{ID: 8})).User)
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	alice := &domain.User{ID: 7, Role: domain.RoleAdmin, IsActive: true}
	users := &fakeUsers{users: map[int64]*domain.User{7: alice}}
	p := newProvider(users, &fakeRevoker{revoked: map[string]time.Time{}})
	other := NewCookieProvider("other-secret", users, nil, time.Second)

	s := p.Session(requestWithToken(t, other, alice))
	assert.Nil(t, s.User)
}

func TestRevokeEndsSession(t *testing.T) {
	alice := &domain.User{ID: 7, Role: domain.RoleManager, IsActive: true}
	rv := &fakeRevoker{revoked: map[string]time.Time{}}
	p := newProvider(&fakeUsers{users: map[int64]*domain.User{7: alice}}, rv)

	r := requestWithToken(t, p, alice)
	require.NotNil(t, p.Session(r).User)

	require.NoError(t, p.Revoke(context.Background(), r))
	assert.Len(t, rv.revoked, 1)
	assert.Nil(t, p.Session(r).User)
}
