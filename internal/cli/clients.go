package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/apiclient"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

func (a *app) clientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "管理客户",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出所有客户（管理端）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(cmd.Context()); err != nil {
				return err
			}

			var clients []domain.Client
			if _, err := apiclient.FetchInto(cmd.Context(), a.api, "/admin/clients", &clients); err != nil {
				return err
			}

			rows := make([][]string, 0, len(clients))
			for _, c := range clients {
				phone := "-"
				if c.Phone != nil {
					phone = a.phone.FormatDisplay(*c.Phone)
				}
				status := "停用"
				if c.IsActive {
					status = "启用"
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					c.Name,
					deref(c.ContactName),
					phone,
					deref(c.Industry),
					status,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "名称", "联系人", "电话", "行业", "状态"}, rows))
			return nil
		},
	})

	return cmd
}
