// Package session 从请求中解析出路由守卫需要的会话状态。
package session

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

const TokenCookieName = "__client_portal_token"

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Provider 是外部认证服务的抽象，守卫只读取它给出的会话
type Provider interface {
	Session(r *http.Request) domain.Session
}

type UserLookup interface {
	GetUserByIDContext(ctx context.Context, id int64) (*domain.User, error)
}

// Revoker 记录已经登出的令牌
type Revoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, until time.Time) error
}

type CookieProvider struct {
	secret         []byte
	users          UserLookup
	revoker        Revoker
	minAccessLevel domain.Role
	lookupTimeout  time.Duration
}

func NewCookieProvider(secret string, users UserLookup, revoker Revoker, lookupTimeout time.Duration) *CookieProvider {
	return &CookieProvider{
		secret:        []byte(secret),
		users:         users,
		revoker:       revoker,
		lookupTimeout: lookupTimeout,
	}
}

// ForApp 返回一个使用指定最低访问级别的副本，管理端和客户端各用一个
func (p *CookieProvider) ForApp(minAccessLevel domain.Role) *CookieProvider {
	cp := *p
	cp.minAccessLevel = minAccessLevel
	return &cp
}

func (p *CookieProvider) Session(r *http.Request) domain.Session {
	s := domain.Session{MinAccessLevel: p.minAccessLevel}

	cookie, err := r.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		return s
	}

	claims, err := p.Parse(cookie.Value)
	if err != nil {
		return s
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return s
	}

	ctx := r.Context()
	if p.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.lookupTimeout)
		defer cancel()
	}

	if p.revoker != nil && claims.ID != "" {
		revoked, err := p.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			if isTimeout(err) {
				s.Loading = true
			} else {
				slog.Error("无法检查令牌状态", "error", err)
			}
			return s
		}
		if revoked {
			return s
		}
	}

	user, err := p.users.GetUserByIDContext(ctx, id)
	if err != nil {
		switch {
		case isTimeout(err):
			// 用户信息还没查出来，交给守卫显示加载状态
			s.Loading = true
		case errors.Is(err, sql.ErrNoRows):
		default:
			slog.Error("无法获取会话用户", "error", err)
		}
		return s
	}

	if !user.IsActive {
		return s
	}

	s.User = user
	s.UserRole = user.Role
	return s
}

// isTimeout 同时覆盖 context 超时和驱动自身的网络超时（redis、pgx 的读写超时不一定包装 context 错误）
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (p *CookieProvider) Parse(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Issue 为用户签发令牌
func (p *CookieProvider) Issue(user *domain.User, expiration time.Time) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	})
	return token.SignedString(p.secret)
}

// Revoke 让请求中携带的令牌失效，没有令牌时什么也不做
func (p *CookieProvider) Revoke(ctx context.Context, r *http.Request) error {
	if p.revoker == nil {
		return nil
	}

	cookie, err := r.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	claims, err := p.Parse(cookie.Value)
	if err != nil || claims.ID == "" {
		return nil
	}

	until := time.Now()
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return p.revoker.Revoke(ctx, claims.ID, until)
}
