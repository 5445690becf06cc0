package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) phoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phone <raw>",
		Short: "显示电话号码的显示格式和存储格式",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "地区：%s（+%d）\n", a.phone.Region, a.phone.CallingCode())
			fmt.Fprintf(out, "显示：%s\n", a.phone.FormatDisplay(args[0]))
			fmt.Fprintf(out, "存储：%s\n", a.phone.FormatStorage(args[0]))
			return nil
		},
	}
}
