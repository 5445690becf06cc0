package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

const defaultMetricsLimit = 30

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultMetricsLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, strconv.ErrSyntax
	}
	return limit, nil
}

// GetClientMetrics 在管理端读取路径中的客户，在客户端读取账号关联的客户
func (h *Handler) GetClientMetrics(w http.ResponseWriter, r *http.Request) {
	client := r.Context().Value(ClientCtx).(*domain.Client)

	limit, err := parseLimit(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "limit 参数无效")
		return
	}

	metrics, err := h.repository.GetSocialMetricsByClientID(client.ID, limit)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取社媒数据成功", metrics)
}

func (h *Handler) RecordClientMetrics(w http.ResponseWriter, r *http.Request) {
	client := r.Context().Value(ClientCtx).(*domain.Client)

	var req struct {
		Platform    string     `json:"platform" validate:"required,max=50"`
		Followers   *int64     `json:"followers" validate:"omitempty,gte=0"`
		Engagement  *float64   `json:"engagement" validate:"omitempty,gte=0,lte=100"`
		Reach       *int64     `json:"reach" validate:"omitempty,gte=0"`
		Impressions *int64     `json:"impressions" validate:"omitempty,gte=0"`
		PostsCount  *int32     `json:"postsCount" validate:"omitempty,gte=0"`
		RecordedAt  *time.Time `json:"recordedAt"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	m := &domain.SocialMetrics{
		ClientID:    client.ID,
		Platform:    req.Platform,
		Followers:   req.Followers,
		Engagement:  req.Engagement,
		Reach:       req.Reach,
		Impressions: req.Impressions,
		PostsCount:  req.PostsCount,
	}
	if req.RecordedAt != nil {
		m.RecordedAt = *req.RecordedAt
	}

	if err := h.repository.InsertSocialMetrics(m); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "social_metrics_client_id_fkey" {
			h.notFound(w, r, "客户不存在")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "记录社媒数据成功", m)
}
