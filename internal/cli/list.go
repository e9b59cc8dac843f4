package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"merchant-verdict/internal/app"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the latest stored snapshot per item and marketplace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().List(cmd.Context(), app.ListOptions{Limit: listLimit})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise stored snapshots, reports and alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Stats(cmd.Context())
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum rows to display")
}
