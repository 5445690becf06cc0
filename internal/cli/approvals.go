package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/apiclient"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

func (a *app) approvalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "查看和审核内容",
	}
	cmd.AddCommand(a.approvalsListCmd(), a.approvalsDecideCmd())
	return cmd
}

func (a *app) approvalsListCmd() *cobra.Command {
	var status string
	var clientID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出待审核和已审核的内容",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if status != "" {
				query.Set("status", status)
			}
			if clientID > 0 && a.surface == surfaceAdmin {
				query.Set("clientID", strconv.FormatInt(clientID, 10))
			}
			path := a.path("/admin/approvals", "/client/approvals")
			if len(query) > 0 {
				path += "?" + query.Encode()
			}

			if _, err := a.login(cmd.Context()); err != nil {
				return err
			}

			var approvals []domain.ContentApproval
			if _, err := apiclient.FetchInto(cmd.Context(), a.api, path, &approvals); err != nil {
				return err
			}

			rows := make([][]string, 0, len(approvals))
			for _, ap := range approvals {
				scheduled := "-"
				if ap.ScheduledFor != nil {
					scheduled = ap.ScheduledFor.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					strconv.FormatInt(ap.ID, 10),
					strconv.FormatInt(ap.ClientID, 10),
					ap.Title,
					deref(ap.Platform),
					scheduled,
					string(ap.Status),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "客户", "标题", "平台", "排期", "状态"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "按状态过滤：pending、approved 或 rejected")
	cmd.Flags().Int64Var(&clientID, "client-id", 0, "按客户过滤（仅管理端）")
	return cmd
}

func (a *app) approvalsDecideCmd() *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:       "decide <id> approved|rejected",
		Short:     "通过或驳回待审核的内容",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.ApprovalApproved), string(domain.ApprovalRejected)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("审核 ID 无效: %s", args[0])
			}
			decision := domain.ApprovalStatus(args[1])
			if decision != domain.ApprovalApproved && decision != domain.ApprovalRejected {
				return fmt.Errorf("审核结果只能是 approved 或 rejected")
			}

			if _, err := a.login(cmd.Context()); err != nil {
				return err
			}

			body := map[string]any{"status": decision}
			if feedback != "" {
				body["feedback"] = feedback
			}

			var approval domain.ContentApproval
			path := a.path(fmt.Sprintf("/admin/approvals/%d", id), fmt.Sprintf("/client/approvals/%d", id))
			if _, err := apiclient.FetchInto(cmd.Context(), a.api, path, &approval,
				apiclient.WithMethod(http.MethodPatch),
				apiclient.WithBody(body),
			); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "《%s》已标记为 %s\n", approval.Title, approval.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&feedback, "feedback", "", "审核意见")
	return cmd
}
