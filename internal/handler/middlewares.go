package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/guard"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/session"
)

const requestIDHeader = "X-Request-ID"

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)

		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "requestID", requestID, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// protected 是页面级的路由守卫：会话加载中时返回加载状态，
// 未登录或级别不够时跳转到登录页，否则把会话放进 context 继续处理
func (h *Handler) protected(sessions session.Provider) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := sessions.Session(r)

			d := guard.Decide(s, "")
			switch d.Outcome {
			case guard.Loading:
				h.loadingResponse(w, r)
			case guard.Redirect:
				h.redirect(w, r, http.StatusUnauthorized, "请先登录", d.Target, d.Replace)
			default:
				ctx := context.WithValue(r.Context(), SessionCtx, s)
				ctx = context.WithValue(ctx, MyInfoCtx, s.User)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

func (h *Handler) loadingResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	h.errorResponse(w, r, http.StatusServiceUnavailable, "会话加载中")
}

// redirect 对页面请求使用 303，登录页会替换掉当前的历史记录；
// 对 API 请求则返回 JSON，由调用方自行完成跳转
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, jsonStatus int, msg string, target string, replace bool) {
	if wantsJSON(r) {
		h.writeJSON(w, r, jsonStatus, Response{
			Success: false,
			Message: msg,
			Data: map[string]any{
				"redirect": target,
				"replace":  replace,
			},
		})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RequiredRole 是操作级的权限检查，必须放在 protected 之后
func (h *Handler) RequiredRole(min domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := r.Context().Value(SessionCtx).(domain.Session)
			if !ok || !s.UserRole.AtLeast(min) {
				h.forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) userInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseIDParam(r, "id")
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "用户ID无效")
			return
		}

		user, err := h.repository.GetUserByID(userID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "用户不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserInfoCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) preventOperateInitialAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Context().Value(UserInfoCtx).(*domain.User)
		if user.Username == h.config.InitialAdmin.Username {
			h.forbiddenMsg(w, r, "禁止操作初始管理员")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) forbiddenMsg(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusForbidden, msg)
}

func (h *Handler) clientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID, err := parseIDParam(r, "id")
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "客户ID无效")
			return
		}

		client, err := h.repository.GetClientByID(clientID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "客户不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ClientCtx, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientScope 把客户端用户关联的客户放进 context，没有关联客户的账号不能使用客户端
func (h *Handler) clientScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
		if myInfo.ClientID == nil {
			h.forbiddenMsg(w, r, "账号未关联客户")
			return
		}

		client, err := h.repository.GetClientByID(*myInfo.ClientID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.forbiddenMsg(w, r, "账号未关联客户")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		if !client.IsActive {
			h.forbiddenMsg(w, r, "客户已停用")
			return
		}

		ctx := context.WithValue(r.Context(), ClientCtx, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) contentApproval(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		approvalID, err := parseIDParam(r, "id")
		if err != nil {
			h.errorResponse(w, r, http.StatusBadRequest, "审核ID无效")
			return
		}

		approval, err := h.repository.GetContentApprovalByID(approvalID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.notFound(w, r, "审核内容不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), ContentApprovalCtx, approval)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// preventForeignApproval 防止客户端用户查看或处理其他客户的内容。
// 对外表现为不存在，避免泄露其他客户的信息
func (h *Handler) preventForeignApproval(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.Context().Value(ClientCtx).(*domain.Client)
		approval := r.Context().Value(ContentApprovalCtx).(*domain.ContentApproval)
		if approval.ClientID != client.ID {
			h.notFound(w, r, "审核内容不存在")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) preventDecidedApproval(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		approval := r.Context().Value(ContentApprovalCtx).(*domain.ContentApproval)
		if approval.Status != domain.ApprovalPending {
			h.conflict(w, r, "该内容已审核")
			return
		}
		next.ServeHTTP(w, r)
	})
}
