package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

type clientResponse struct {
	*domain.Client
	PhoneDisplay string `json:"phoneDisplay,omitempty"`
}

func (h *Handler) clientView(c *domain.Client) clientResponse {
	resp := clientResponse{Client: c}
	if c.Phone != nil {
		resp.PhoneDisplay = h.phone.FormatDisplay(*c.Phone)
	}
	return resp
}

// normalizePhone 转换为存储格式，没有数字时视为清空
func (h *Handler) normalizePhone(raw *string) *string {
	if raw == nil {
		return nil
	}
	storage := h.phone.FormatStorage(*raw)
	if storage == "" {
		return nil
	}
	return &storage
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func (h *Handler) GetAllClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.repository.GetAllClients()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	views := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		views = append(views, h.clientView(c))
	}

	h.successResponse(w, r, "获取客户列表成功", views)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name" validate:"required,max=200"`
		ContactName *string `json:"contactName"`
		Email       *string `json:"email" validate:"omitempty,email"`
		Phone       *string `json:"phone"`
		Industry    *string `json:"industry"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	client := &domain.Client{
		Name:        req.Name,
		ContactName: emptyToNil(req.ContactName),
		Email:       emptyToNil(req.Email),
		Phone:       h.normalizePhone(req.Phone),
		Industry:    emptyToNil(req.Industry),
	}

	if err := h.repository.CreateClient(client); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "客户创建成功", h.clientView(client))
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	client := r.Context().Value(ClientCtx).(*domain.Client)
	h.successResponse(w, r, "获取客户信息成功", h.clientView(client))
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
		ContactName *string `json:"contactName"`
		Email       *string `json:"email" validate:"omitempty,email"`
		Phone       *string `json:"phone"`
		Industry    *string `json:"industry"`
		IsActive    *bool   `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	client := r.Context().Value(ClientCtx).(*domain.Client)

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.ContactName != nil {
		client.ContactName = emptyToNil(req.ContactName)
	}
	if req.Email != nil {
		client.Email = emptyToNil(req.Email)
	}
	if req.Phone != nil {
		client.Phone = h.normalizePhone(req.Phone)
	}
	if req.Industry != nil {
		client.Industry = emptyToNil(req.Industry)
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateClient(client); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.conflict(w, r, "更新客户信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新客户信息成功", h.clientView(client))
}

func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	client := r.Context().Value(ClientCtx).(*domain.Client)

	if err := h.repository.DeleteClient(client.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除客户成功", nil)
}
