package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

// approvalFilter 从查询参数中读取 status 和 clientID 过滤条件
func (h *Handler) approvalFilter(r *http.Request) (*int64, *domain.ApprovalStatus, error) {
	var clientID *int64
	if raw := r.URL.Query().Get("clientID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, nil, errors.New("clientID 参数无效")
		}
		clientID = &id
	}

	status, err := h.statusFilter(r)
	if err != nil {
		return nil, nil, err
	}

	return clientID, status, nil
}

func (h *Handler) statusFilter(r *http.Request) (*domain.ApprovalStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	if err := h.validate.Var(raw, "oneof=pending approved rejected"); err != nil {
		return nil, errors.New("status 参数无效")
	}
	status := domain.ApprovalStatus(raw)
	return &status, nil
}

func (h *Handler) GetAllApprovals(w http.ResponseWriter, r *http.Request) {
	clientID, status, err := h.approvalFilter(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	approvals, err := h.repository.GetContentApprovals(clientID, status)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取审核列表成功", approvals)
}

// GetClientApprovals 在管理端读取路径中的客户，在客户端读取账号关联的客户
func (h *Handler) GetClientApprovals(w http.ResponseWriter, r *http.Request) {
	client := r.Context().Value(ClientCtx).(*domain.Client)

	status, err := h.statusFilter(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	approvals, err := h.repository.GetContentApprovals(&client.ID, status)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取审核列表成功", approvals)
}

func (h *Handler) SubmitApproval(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		ClientID     int64      `json:"clientID" validate:"required,gt=0"`
		Title        string     `json:"title" validate:"required,max=200"`
		Body         *string    `json:"body"`
		Platform     *string    `json:"platform" validate:"omitempty,max=50"`
		ScheduledFor *time.Time `json:"scheduledFor"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	client, err := h.repository.GetClientByID(req.ClientID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusBadRequest, "客户不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	approval := &domain.ContentApproval{
		ClientID:     client.ID,
		Title:        req.Title,
		Body:         emptyToNil(req.Body),
		Platform:     emptyToNil(req.Platform),
		ScheduledFor: req.ScheduledFor,
		SubmittedBy:  myInfo.ID,
	}

	if err := h.repository.CreateContentApproval(approval); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "content_approvals_client_id_fkey" {
			h.errorResponse(w, r, http.StatusBadRequest, "客户不存在")
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	// 通知客户的所有用户有新的内容待审核，通知失败不影响提交结果
	recipients, err := h.repository.GetActiveUsersByClientID(client.ID)
	if err != nil {
		slog.Error("无法获取客户用户", "clientID", client.ID, "error", err)
	}
	for _, u := range recipients {
		if err := h.publishMail(domain.MailMessage{
			Type: domain.MailContentSubmitted,
			To:   u.Email,
			Data: domain.ContentSubmittedMailData{
				FullName:   u.FullName,
				ClientName: client.Name,
				Title:      approval.Title,
			},
		}); err != nil {
			slog.Error("无法发送审核通知", "to", u.Email, "error", err)
		}
	}

	h.createdResponse(w, r, "提交审核成功", approval)
}

func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	approval := r.Context().Value(ContentApprovalCtx).(*domain.ContentApproval)
	h.successResponse(w, r, "获取审核内容成功", approval)
}

func (h *Handler) DecideApproval(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	approval := r.Context().Value(ContentApprovalCtx).(*domain.ContentApproval)

	var req struct {
		Status   string  `json:"status" validate:"required,oneof=approved rejected"`
		Feedback *string `json:"feedback" validate:"omitempty,max=2000"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	approval.Status = domain.ApprovalStatus(req.Status)
	approval.Feedback = emptyToNil(req.Feedback)
	approval.DecidedBy = &myInfo.ID

	if err := h.repository.DecideContentApproval(approval); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, "审核失败，内容可能已被处理，请刷新后重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 通知提交人审核结果
	submitter, err := h.repository.GetUserByID(approval.SubmittedBy)
	if err != nil {
		slog.Error("无法获取提交人", "userID", approval.SubmittedBy, "error", err)
	} else {
		feedback := ""
		if approval.Feedback != nil {
			feedback = *approval.Feedback
		}
		if err := h.publishMail(domain.MailMessage{
			Type: domain.MailContentDecided,
			To:   submitter.Email,
			Data: domain.ContentDecidedMailData{
				FullName: submitter.FullName,
				Title:    approval.Title,
				Status:   approval.Status,
				Feedback: feedback,
			},
		}); err != nil {
			slog.Error("无法发送审核结果通知", "to", submitter.Email, "error", err)
		}
	}

	h.successResponse(w, r, "审核成功", approval)
}

func (h *Handler) DeleteApproval(w http.ResponseWriter, r *http.Request) {
	approval := r.Context().Value(ContentApprovalCtx).(*domain.ContentApproval)

	if err := h.repository.DeleteContentApproval(approval.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除审核内容成功", nil)
}
