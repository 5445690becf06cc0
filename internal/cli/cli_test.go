package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/config"
)

const testCookie = "__client_portal_token"

// fakeBackend 只有登录后带 cookie 的请求才能访问其他接口
type fakeBackend struct {
	*httptest.Server
	requests []*http.Request
	bodies   []map[string]any
}

func writeEnvelope(w http.ResponseWriter, status int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 300,
		"message": msg,
		"data":    data,
	})
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "secret" {
			writeEnvelope(w, http.StatusUnauthorized, "用户名不存在或密码错误", nil)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: testCookie, Value: "token", Path: "/"})
		writeEnvelope(w, http.StatusOK, "登录成功", map[string]any{
			"id": 1, "username": req["username"], "fullName": "李静", "role": "manager",
		})
	})
	mux.HandleFunc("GET /api/session", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "获取会话成功", map[string]any{
			"user": map[string]any{"id": 1, "username": "lijing"}, "userRole": "manager", "minAccessLevel": "basic", "loading": false,
		})
	})
	mux.HandleFunc("GET /admin/clients", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "获取客户列表成功", []map[string]any{
			{"id": 3, "name": "晨光咖啡", "phone": "+15551234567", "isActive": true},
		})
	})
	mux.HandleFunc("GET /client/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "获取指标成功", []map[string]any{
			{"id": 1, "clientID": 3, "platform": "weibo", "followers": 1200, "engagement": 3.5, "recordedAt": "2026-10-01T08:00:00Z"},
		})
	})
	mux.HandleFunc("PATCH /client/approvals/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "审核成功", map[string]any{
			"id": 9, "clientID": 3, "title": "春季新品推文", "status": "rejected",
		})
	})

	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		b.requests = append(b.requests, r)
		b.bodies = append(b.bodies, body)

		if r.URL.Path != "/auth/login" {
			if _, err := r.Cookie(testCookie); err != nil {
				writeEnvelope(w, http.StatusUnauthorized, "请先登录", map[string]any{"redirect": "/login", "replace": true})
				return
			}
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Close)

	return b
}

func run(t *testing.T, cfg *config.CLIConfig, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func testConfig(url string) *config.CLIConfig {
	return &config.CLIConfig{APIURL: url, Username: "lijing", Password: "secret", PhoneLocale: "en-US"}
}

func TestLogin(t *testing.T) {
	b := newFakeBackend(t)

	out, err := run(t, testConfig(b.URL), "login")
	require.NoError(t, err)
	assert.Contains(t, out, "李静")
	assert.Contains(t, out, "manager")
	assert.Equal(t, "lijing", b.bodies[0]["username"])
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	b := newFakeBackend(t)

	_, err := run(t, testConfig(b.URL), "login", "--password", "wrong")
	assert.ErrorContains(t, err, "用户名不存在或密码错误")
}

func TestLoginRequiresCredentials(t *testing.T) {
	b := newFakeBackend(t)
	cfg := testConfig(b.URL)
	cfg.Password = ""

	_, err := run(t, cfg, "session")
	assert.ErrorContains(t, err, "缺少登录信息")
	assert.Empty(t, b.requests)
}

func TestSessionReusesLoginCookie(t *testing.T) {
	b := newFakeBackend(t)

	out, err := run(t, testConfig(b.URL), "session")
	require.NoError(t, err)
	assert.Contains(t, out, `"userRole": "manager"`)
	require.Len(t, b.requests, 2)
	assert.Equal(t, "/api/session", b.requests[1].URL.Path)
}

func TestClientsListFormatsPhone(t *testing.T) {
	b := newFakeBackend(t)

	out, err := run(t, testConfig(b.URL), "clients", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "晨光咖啡")
	assert.Contains(t, out, "+1 (555) 123-4567")
	assert.Contains(t, out, "启用")
}

func TestMetricsAdminRequiresClientID(t *testing.T) {
	b := newFakeBackend(t)

	_, err := run(t, testConfig(b.URL), "metrics")
	assert.ErrorContains(t, err, "客户 ID")
	assert.Empty(t, b.requests)
}

func TestMetricsClientApp(t *testing.T) {
	b := newFakeBackend(t)

	out, err := run(t, testConfig(b.URL), "--app", "client", "metrics", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "weibo")
	assert.Contains(t, out, "3.50%")
	assert.Equal(t, "5", b.requests[1].URL.Query().Get("limit"))
}

func TestApprovalsDecide(t *testing.T) {
	b := newFakeBackend(t)

	out, err := run(t, testConfig(b.URL), "--app", "client", "approvals", "decide", "9", "rejected", "--feedback", "配图需要更换")
	require.NoError(t, err)
	assert.Contains(t, out, "春季新品推文")

	req := b.requests[1]
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/client/approvals/9", req.URL.Path)
	assert.Equal(t, "rejected", b.bodies[1]["status"])
	assert.Equal(t, "配图需要更换", b.bodies[1]["feedback"])
}

func TestApprovalsDecideRejectsUnknownDecision(t *testing.T) {
	b := newFakeBackend(t)

	_, err := run(t, testConfig(b.URL), "approvals", "decide", "9", "maybe")
	assert.ErrorContains(t, err, "approved 或 rejected")
	assert.Empty(t, b.requests)
}

func TestInvalidApp(t *testing.T) {
	_, err := run(t, testConfig("http://127.0.0.1:1"), "--app", "owner", "phone", "5551234567")
	assert.ErrorContains(t, err, "无效的应用")
}

func TestPhone(t *testing.T) {
	out, err := run(t, testConfig(""), "phone", "5551234567")
	require.NoError(t, err)
	assert.Contains(t, out, "显示：(555) 123-4567")
	assert.Contains(t, out, "存储：+15551234567")
	assert.Contains(t, out, "地区：US（+1）")
}
