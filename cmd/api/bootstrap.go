package main

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/sysu-ecnc-dev/client-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type adminStore interface {
	GetUserByUsername(username string) (*domain.User, error)
	CreateUser(user *domain.User) error
	UpdateUser(user *domain.User) error
}

// ensureInitialAdmin 保证初始管理员存在且能进入管理端：
// 不存在时创建；存在但被降级、停用或关联到了某个客户时恢复。
// 密码只在创建时设置，之后由管理员自己维护
func ensureInitialAdmin(store adminStore, cfg *config.Config) error {
	admin, err := store.GetUserByUsername(cfg.InitialAdmin.Username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		slog.Info("创建初始管理员", "username", cfg.InitialAdmin.Username)
		return store.CreateUser(&domain.User{
			Username:     cfg.InitialAdmin.Username,
			PasswordHash: string(passwordHash),
			FullName:     cfg.InitialAdmin.FullName,
			Email:        cfg.InitialAdmin.Email,
			Role:         domain.RoleAdmin,
			IsActive:     true,
		})
	case err != nil:
		return err
	}

	if admin.Role == domain.RoleAdmin && admin.IsActive && admin.ClientID == nil {
		return nil
	}

	slog.Warn("初始管理员状态异常，已恢复",
		"role", admin.Role,
		"isActive", admin.IsActive,
		"linkedClient", admin.ClientID != nil,
	)
	admin.Role = domain.RoleAdmin
	admin.IsActive = true
	admin.ClientID = nil
	return store.UpdateUser(admin)
}
