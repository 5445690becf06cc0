package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/apiclient"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

func (a *app) metricsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "metrics [client-id]",
		Short: "显示客户的社交媒体指标",
		Long: `显示客户最近的社交媒体指标。

管理端需要指定客户 ID；客户端（--app client）读取账号关联的客户，不需要参数。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/client/metrics"
			if a.surface == surfaceAdmin {
				if len(args) != 1 {
					return fmt.Errorf("管理端需要指定客户 ID")
				}
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("客户 ID 无效: %s", args[0])
				}
				path = fmt.Sprintf("/admin/clients/%d/metrics", id)
			}
			path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()

			if _, err := a.login(cmd.Context()); err != nil {
				return err
			}

			var metrics []domain.SocialMetrics
			if _, err := apiclient.FetchInto(cmd.Context(), a.api, path, &metrics); err != nil {
				return err
			}

			rows := make([][]string, 0, len(metrics))
			for _, m := range metrics {
				engagement := "-"
				if m.Engagement != nil {
					engagement = strconv.FormatFloat(*m.Engagement, 'f', 2, 64) + "%"
				}
				rows = append(rows, []string{
					m.RecordedAt.Local().Format("2006-01-02 15:04"),
					m.Platform,
					deref(m.Followers),
					engagement,
					deref(m.Reach),
					deref(m.Impressions),
					deref(m.PostsCount),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"时间", "平台", "粉丝", "互动率", "触达", "曝光", "发帖"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 30, "最多显示的记录数，0 表示全部")
	return cmd
}
