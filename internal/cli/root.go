// Package cli 实现 portalctl 命令行工具，通过 HTTP API 访问客户门户后端。
package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/apiclient"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/phone"
)

const (
	surfaceAdmin  = "admin"
	surfaceClient = "client"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

type app struct {
	cfg *config.CLIConfig

	apiURL   string
	username string
	password string
	surface  string

	api   *apiclient.Client
	phone *phone.Formatter
}

// NewRootCmd 创建 portalctl 的根命令，flag 的默认值来自环境变量配置
func NewRootCmd(cfg *config.CLIConfig) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "客户门户命令行工具",
		Long: `portalctl 通过 HTTP API 访问客户门户后端。

需要登录的命令会先使用 --username/--password（或 PORTALCTL_USERNAME/PORTALCTL_PASSWORD）
登录，同一次调用中的后续请求复用登录得到的 cookie。

API 地址依次取 --api-url、VITE_API_URL、编译时设置的默认地址，最后是 http://localhost:4000。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api-url", cfg.APIURL, "后端 API 地址")
	flags.StringVarP(&a.username, "username", "u", cfg.Username, "登录用户名")
	flags.StringVarP(&a.password, "password", "p", cfg.Password, "登录密码")
	flags.StringVar(&a.surface, "app", surfaceAdmin, "访问的应用：admin 或 client")

	root.AddCommand(
		a.loginCmd(),
		a.sessionCmd(),
		a.clientsCmd(),
		a.metricsCmd(),
		a.approvalsCmd(),
		a.phoneCmd(),
	)

	return root
}

func (a *app) init() error {
	if a.surface != surfaceAdmin && a.surface != surfaceClient {
		return fmt.Errorf("无效的应用 %q，只能是 admin 或 client", a.surface)
	}

	f, err := phone.NewFormatter(a.cfg.PhoneLocale)
	if err != nil {
		return err
	}
	a.phone = f

	api, err := apiclient.New(a.apiURL, nil)
	if err != nil {
		return err
	}
	a.api = api

	return nil
}

// path 根据 --app 选择管理端或客户端的接口
func (a *app) path(adminPath, clientPath string) string {
	if a.surface == surfaceClient {
		return clientPath
	}
	return adminPath
}

func (a *app) login(ctx context.Context) (*domain.User, error) {
	if a.username == "" || a.password == "" {
		return nil, fmt.Errorf("缺少登录信息，请设置 PORTALCTL_USERNAME 和 PORTALCTL_PASSWORD 或使用 --username/--password")
	}

	user := &domain.User{}
	_, err := apiclient.FetchInto(ctx, a.api, "/auth/login", user,
		apiclient.WithMethod(http.MethodPost),
		apiclient.WithBody(map[string]string{
			"username": a.username,
			"password": a.password,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("登录失败: %w", err)
	}
	return user, nil
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func deref[T any](p *T) string {
	if p == nil {
		return "-"
	}
	return strings.TrimSpace(fmt.Sprint(*p))
}
