package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"merchant-verdict/internal/app"
)

var (
	showLimit  int
	showASIN   string
	showAlerts bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent verdict reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			ASIN:   showASIN,
			Alerts: showAlerts,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().StringVar(&showASIN, "asin", "", "Only show reports for this ASIN")
	showCmd.Flags().BoolVar(&showAlerts, "alerts", false, "Show delivered alerts instead of reports")
}
