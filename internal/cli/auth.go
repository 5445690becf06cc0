package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/apiclient"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "验证登录信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.login(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已登录：%s（%s，%s）\n", user.FullName, user.Username, user.Role)
			return nil
		},
	}
}

func (a *app) sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "显示服务端看到的当前会话",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(cmd.Context()); err != nil {
				return err
			}

			var s domain.Session
			if _, err := apiclient.FetchInto(cmd.Context(), a.api, "/api/session", &s); err != nil {
				return err
			}

			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
