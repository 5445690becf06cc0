package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/phone"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/session"
	"golang.org/x/crypto/bcrypt"
)

type staticSessions domain.Session

func (s staticSessions) Session(*http.Request) domain.Session {
	return domain.Session(s)
}

type fakePublisher struct {
	keys     []string
	messages []amqp.Publishing
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	f.messages = append(f.messages, msg)
	return nil
}

type fakeCredentials map[string]*domain.User

func (f fakeCredentials) GetUserByUsername(username string) (*domain.User, error) {
	u, ok := f[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func newTestHandler(t *testing.T, s domain.Session) *Handler {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	trans, _ := uni.GetTranslator("zh")
	require.NoError(t, zh_translations.RegisterDefaultTranslations(validate, trans))

	cfg := &config.Config{}
	cfg.RabbitMQ.Queue = "email_queue"
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.JWT.Expiration = 1

	admin := s
	admin.MinAccessLevel = domain.RoleAssistant
	client := s
	client.MinAccessLevel = domain.RoleBasic

	h := &Handler{
		validate:       validate,
		config:         cfg,
		translator:     trans,
		credentials:    fakeCredentials{},
		mailPublisher:  &fakePublisher{},
		phone:          phone.MustFormatter("en-US"),
		sessions:       session.NewCookieProvider("test-secret", nil, nil, 0),
		adminSessions:  staticSessions(admin),
		clientSessions: staticSessions(client),
		adminMinLevel:  domain.RoleAssistant,
		Mux:            chi.NewRouter(),
	}
	h.RegisterRoutes()
	return h
}

func signedIn(role domain.Role) domain.Session {
	return domain.Session{
		User:     &domain.User{ID: 42, Username: "alice", Role: role, IsActive: true},
		UserRole: role,
	}
}

func serve(h *Handler, method, path string, jsonClient bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if jsonClient {
		req.Header.Set("Accept", "application/json")
	}
	rr := httptest.NewRecorder()
	h.Mux.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestProtectedLoadingShowsTransientState(t *testing.T) {
	h := newTestHandler(t, domain.Session{Loading: true})

	rr := serve(h, http.MethodGet, "/admin/dashboard", false)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Empty(t, rr.Header().Get("Location"))
	assert.Equal(t, "会话加载中", decode(t, rr).Message)
}

func TestProtectedAnonymousRedirectsToLogin(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	rr := serve(h, http.MethodGet, "/admin/dashboard", false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestProtectedAnonymousJSONGetsRedirectHint(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	rr := serve(h, http.MethodGet, "/admin/clients", true)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	resp := decode(t, rr)
	assert.False(t, resp.Success)
	assert.Equal(t, map[string]any{"redirect": "/login", "replace": true}, resp.Data)
}

func TestProtectedRoleBelowAppLevelRedirects(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleBasic))

	rr := serve(h, http.MethodGet, "/admin/dashboard", false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestProtectedUnknownRoleRedirects(t *testing.T) {
	h := newTestHandler(t, signedIn("owner"))

	rr := serve(h, http.MethodGet, "/my-info", false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestProtectedRendersForSufficientRole(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleBasic))

	rr := serve(h, http.MethodGet, "/my-info", true)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode(t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, "alice", resp.Data.(map[string]any)["username"])
}

func TestRequiredRoleForbidsActionBelowLevel(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleSupervisor))

	rr := serve(h, http.MethodPost, "/admin/clients", true)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "权限不足", decode(t, rr).Message)

	rr = serve(h, http.MethodPost, "/admin/users", true)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequiredRoleRunsHandlerForSufficientRole(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleManager))

	// 请求体为空，说明已经通过权限检查进入了处理函数
	rr := serve(h, http.MethodPost, "/admin/clients", true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClientAppRequiresLinkedClient(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleManager))

	rr := serve(h, http.MethodGet, "/client/dashboard", true)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "账号未关联客户", decode(t, rr).Message)
}

func TestDashboardBranchesOnRole(t *testing.T) {
	cases := []struct {
		session domain.Session
		want    string
	}{
		{domain.Session{}, "/login"},
		{signedIn(domain.RoleBasic), "/client/dashboard"},
		{signedIn(domain.RoleAssistant), "/admin/dashboard"},
		{signedIn(domain.RoleAdmin), "/admin/dashboard"},
	}
	for _, c := range cases {
		h := newTestHandler(t, c.session)
		rr := serve(h, http.MethodGet, "/dashboard", false)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, c.want, rr.Header().Get("Location"))
	}
}

func TestDashboardJSONCarriesTarget(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleManager))

	rr := serve(h, http.MethodGet, "/dashboard", true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/admin/dashboard", decode(t, rr).Data.(map[string]any)["redirect"])
}

func TestNotFoundBranchesOnAuthentication(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleBasic))
	rr := serve(h, http.MethodGet, "/no-such-page", false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	h = newTestHandler(t, domain.Session{})
	rr = serve(h, http.MethodGet, "/no-such-page", false)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = serve(h, http.MethodGet, "/no-such-page", true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "/login", decode(t, rr).Data.(map[string]any)["redirect"])
}

func TestGetSessionExposesGuardInputs(t *testing.T) {
	h := newTestHandler(t, signedIn(domain.RoleSupervisor))

	rr := serve(h, http.MethodGet, "/api/session", true)
	require.Equal(t, http.StatusOK, rr.Code)

	data := decode(t, rr).Data.(map[string]any)
	assert.Equal(t, "supervisor", data["userRole"])
	assert.Equal(t, "basic", data["minAccessLevel"])
	assert.Equal(t, false, data["loading"])
}

func TestLoginPageIsPublic(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	rr := serve(h, http.MethodGet, "/login", false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `action="/auth/login"`)
}

func TestLoggerSetsRequestID(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	rr := serve(h, http.MethodGet, "/login", false)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rr = httptest.NewRecorder()
	h.Mux.ServeHTTP(rr, req)
	assert.Equal(t, "fixed-id", rr.Header().Get(requestIDHeader))
}

func TestPublishMailUsesConfiguredQueue(t *testing.T) {
	h := newTestHandler(t, domain.Session{})
	pub := h.mailPublisher.(*fakePublisher)

	err := h.publishMail(domain.MailMessage{
		Type: domain.MailContentDecided,
		To:   "alice@example.com",
		Data: domain.ContentDecidedMailData{Title: "春季活动", Status: domain.ApprovalApproved},
	})
	require.NoError(t, err)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "email_queue", pub.keys[0])
	assert.Equal(t, "application/json", pub.messages[0].ContentType)

	var msg struct {
		Type string         `json:"type"`
		To   string         `json:"to"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pub.messages[0].Body, &msg))
	assert.Equal(t, "content_decided", msg.Type)
	assert.Equal(t, "approved", msg.Data["status"])
}

func TestNormalizePhone(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	raw := "(555) 123-4567"
	assert.Equal(t, "+15551234567", *h.normalizePhone(&raw))

	empty := " - "
	assert.Nil(t, h.normalizePhone(&empty))
	assert.Nil(t, h.normalizePhone(nil))

	stored := "+15551234567"
	view := h.clientView(&domain.Client{ID: 1, Name: "Acme", Phone: &stored})
	assert.Equal(t, "+1 (555) 123-4567", view.PhoneDisplay)
}

func withAccount(t *testing.T, h *Handler, username, password string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	h.credentials = fakeCredentials{
		username: {ID: 42, Username: username, PasswordHash: string(hash), Role: domain.RoleBasic, IsActive: active},
	}
}

func postForm(h *Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.Mux.ServeHTTP(rr, req)
	return rr
}

func tokenCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.TokenCookieName {
			return c
		}
	}
	return nil
}

func TestLoginFormRedirectsToDashboard(t *testing.T) {
	h := newTestHandler(t, domain.Session{})
	withAccount(t, h, "alice", "secret", true)

	rr := postForm(h, "/auth/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	cookie := tokenCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	claims, err := h.sessions.Parse(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
}

func TestLoginFormRejectsWrongPassword(t *testing.T) {
	h := newTestHandler(t, domain.Session{})
	withAccount(t, h, "alice", "secret", true)

	rr := postForm(h, "/auth/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, tokenCookie(rr))
}

func TestLoginFormValidatesFields(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	rr := postForm(h, "/auth/login", url.Values{"username": {"alice"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotContains(t, decode(t, rr).Message, "invalid character")
}

func TestLoginJSONReturnsUser(t *testing.T) {
	h := newTestHandler(t, domain.Session{})
	withAccount(t, h, "alice", "secret", true)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, tokenCookie(rr))
	assert.Equal(t, "alice", decode(t, rr).Data.(map[string]any)["username"])
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	h := newTestHandler(t, domain.Session{})
	withAccount(t, h, "alice", "secret", false)

	rr := postForm(h, "/auth/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Nil(t, tokenCookie(rr))
}

func TestUserConstraintError(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	cases := []struct {
		constraint string
		status     int
		message    string
	}{
		{"content_approvals_submitted_by_fkey", http.StatusConflict, "该用户提交过审核内容，无法删除，请改为停用"},
		{"users_username_key", http.StatusConflict, "用户名已存在"},
		{"users_email_key", http.StatusConflict, "邮箱已存在"},
		{"users_client_id_fkey", http.StatusBadRequest, "客户不存在"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/admin/users/7", nil)
		err := fmt.Errorf("delete user: %w", &pgconn.PgError{Code: "23503", ConstraintName: c.constraint})

		require.True(t, h.userConstraintError(rr, req, err), c.constraint)
		assert.Equal(t, c.status, rr.Code, c.constraint)
		assert.Equal(t, c.message, decode(t, rr).Message, c.constraint)
	}
}

func TestUserConstraintErrorIgnoresOtherErrors(t *testing.T) {
	h := newTestHandler(t, domain.Session{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin/users/7", nil)
	assert.False(t, h.userConstraintError(rr, req, &pgconn.PgError{ConstraintName: "content_approvals_client_id_fkey"}))
	assert.False(t, h.userConstraintError(rr, req, sql.ErrConnDone))
	assert.Equal(t, 0, rr.Body.Len())
}
