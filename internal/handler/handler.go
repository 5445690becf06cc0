package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/phone"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/repository"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/session"
)

// MailPublisher 由 *amqp.Channel 实现
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// credentialStore 是登录时查询账号需要的最小接口，由 *repository.Repository 实现
type credentialStore interface {
	GetUserByUsername(username string) (*domain.User, error)
}

type Handler struct {
	validate      *validator.Validate
	config        *config.Config
	repository    *repository.Repository
	credentials   credentialStore
	translator    ut.Translator
	mailPublisher MailPublisher
	redisClient   *redis.Client
	phone         *phone.Formatter

	// sessions 负责签发和吊销令牌，adminSessions/clientSessions 分别带有两端的最低访问级别
	sessions       *session.CookieProvider
	adminSessions  session.Provider
	clientSessions session.Provider
	adminMinLevel  domain.Role

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailPub MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	adminMin := domain.Role(cfg.Access.AdminMinLevel)
	clientMin := domain.Role(cfg.Access.ClientMinLevel)
	if !adminMin.Valid() || !clientMin.Valid() {
		return nil, fmt.Errorf("无效的最低访问级别: admin=%q client=%q", adminMin, clientMin)
	}

	formatter, err := phone.NewFormatter(cfg.PhoneLocale)
	if err != nil {
		return nil, err
	}

	sessions := session.NewCookieProvider(
		cfg.JWT.Secret,
		repo,
		session.NewRedisRevoker(rdb),
		time.Duration(cfg.Session.LookupTimeout)*time.Second,
	)

	return &Handler{
		validate:      validate,
		config:        cfg,
		repository:    repo,
		credentials:   repo,
		translator:    trans,
		mailPublisher: mailPub,
		redisClient:   rdb,
		phone:         formatter,

		sessions:       sessions,
		adminSessions:  sessions.ForApp(adminMin),
		clientSessions: sessions.ForApp(clientMin),
		adminMinLevel:  adminMin,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/login", h.LoginPage)
	h.Mux.Get("/dashboard", h.Dashboard)
	h.Mux.Get("/api/session", h.GetSession)
	h.Mux.NotFound(h.NotFound)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 两端共用的个人信息
	h.Mux.Route("/my-info", func(r chi.Router) {
		r.Use(h.protected(h.clientSessions))
		r.Get("/", h.GetMyInfo)
		r.Patch("/password", h.UpdateMyPassword)
		r.Route("/update-email", func(r chi.Router) {
			r.Post("/require", h.RequireUpdateEmail)
			r.Post("/confirm", h.ConfirmUpdateEmail)
		})
	})

	// 管理端
	h.Mux.Route("/admin", func(r chi.Router) {
		r.Use(h.protected(h.adminSessions))
		r.Get("/dashboard", h.AdminDashboard)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.GetAllUserInfo)
			r.With(h.RequiredRole(domain.RoleAdmin)).Post("/", h.CreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.RequiredRole(domain.RoleAdmin)).With(h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
				r.With(h.RequiredRole(domain.RoleAdmin)).With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
				r.With(h.RequiredRole(domain.RoleAdmin)).Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.GetAllClients)
			r.With(h.RequiredRole(domain.RoleManager)).Post("/", h.CreateClient)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.clientInfo)
				r.Get("/", h.GetClient)
				r.With(h.RequiredRole(domain.RoleManager)).Patch("/", h.UpdateClient)
				r.With(h.RequiredRole(domain.RoleAdmin)).Delete("/", h.DeleteClient)
				r.Get("/metrics", h.GetClientMetrics)
				r.With(h.RequiredRole(domain.RoleSupervisor)).Post("/metrics", h.RecordClientMetrics)
				r.Get("/approvals", h.GetClientApprovals)
			})
		})

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", h.GetAllApprovals)
			r.With(h.RequiredRole(domain.RoleAssistant)).Post("/", h.SubmitApproval)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.contentApproval)
				r.Get("/", h.GetApproval)
				r.With(h.RequiredRole(domain.RoleManager)).With(h.preventDecidedApproval).Patch("/", h.DecideApproval)
				r.With(h.RequiredRole(domain.RoleManager)).Delete("/", h.DeleteApproval)
			})
		})
	})

	// 客户端
	h.Mux.Route("/client", func(r chi.Router) {
		r.Use(h.protected(h.clientSessions))
		r.Use(h.clientScope)
		r.Get("/dashboard", h.ClientDashboard)
		r.Get("/metrics", h.GetClientMetrics)
		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", h.GetClientApprovals)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.contentApproval)
				r.Use(h.preventForeignApproval)
				r.Get("/", h.GetApproval)
				r.With(h.preventDecidedApproval).Patch("/", h.DecideApproval)
			})
		})
	})
}
