package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.repository.GetDashboardSummary()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取首页数据成功", summary)
}

func (h *Handler) ClientDashboard(w http.ResponseWriter, r *http.Request) {
	client := r.Context().Value(ClientCtx).(*domain.Client)

	metrics, err := h.repository.GetSocialMetricsByClientID(client.ID, 1)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	pending := domain.ApprovalPending
	approvals, err := h.repository.GetContentApprovals(&client.ID, &pending)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	var latest *domain.SocialMetrics
	if len(metrics) > 0 {
		latest = metrics[0]
	}

	h.successResponse(w, r, "获取首页数据成功", map[string]any{
		"client":           h.clientView(client),
		"latestMetrics":    latest,
		"pendingApprovals": len(approvals),
	})
}
