// Package apiclient 封装对门户后端的 HTTP 调用：解析基础地址、带上 JSON 头和 cookie、
// 把非 2xx 响应统一转换为携带可展示信息的 *APIError。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
)

const DefaultBaseURL = "http://localhost:4000"

// AppAPIURL 是运行时的全局地址，可以通过 -ldflags "-X .../apiclient.AppAPIURL=..." 注入，
// 也可以由嵌入本包的程序在启动时设置
var AppAPIURL string

// ResolveBaseURL 的优先级：构建配置 VITE_API_URL，其次运行时全局地址，最后是默认地址
func ResolveBaseURL(envURL string) string {
	for _, candidate := range []string{envURL, AppAPIURL, DefaultBaseURL} {
		if c := strings.TrimSpace(candidate); c != "" {
			return strings.TrimRight(c, "/")
		}
	}
	return DefaultBaseURL
}

type APIError struct {
	Status  int
	Message string
	Details any
}

func (e *APIError) Error() string {
	return e.Message
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New 创建客户端。httpClient 为空时创建一个带 cookie jar 的客户端，
// 登录后服务端下发的 cookie 会在之后的请求中自动带上
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Jar: jar}
	}

	return &Client{
		baseURL:    ResolveBaseURL(baseURL),
		httpClient: httpClient,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method  string
	body    any
	headers http.Header
}

type Option func(*request)

func WithMethod(method string) Option {
	return func(r *request) {
		r.method = method
	}
}

// WithBody 设置请求体，会被编码为 JSON
func WithBody(body any) Option {
	return func(r *request) {
		r.body = body
	}
}

func WithHeader(key, value string) Option {
	return func(r *request) {
		r.headers.Set(key, value)
	}
}

// Fetch 发送请求并返回解析后的 JSON 响应体。
// 成功响应的响应体为空或不是合法 JSON 时返回 nil 而不是错误。
func (c *Client) Fetch(ctx context.Context, path string, opts ...Option) (json.RawMessage, error) {
	req := &request{method: http.MethodGet, headers: http.Header{}}
	for _, opt := range opts {
		opt(req)
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("编码请求体失败: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for key, values := range req.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	var parsed json.RawMessage
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && json.Valid(trimmed) {
		parsed = json.RawMessage(trimmed)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, parsed)
	}

	return parsed, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func newAPIError(status int, body json.RawMessage) *APIError {
	apiErr := &APIError{
		Status:  status,
		Message: fmt.Sprintf("请求失败，状态码 %d", status),
	}

	var payload struct {
		Message *string `json:"message"`
		Details any     `json:"details"`
	}
	if body != nil && json.Unmarshal(body, &payload) == nil {
		if payload.Message != nil && *payload.Message != "" {
			apiErr.Message = *payload.Message
		}
		apiErr.Details = payload.Details
	}

	return apiErr
}
