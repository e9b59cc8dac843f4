package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"merchant-verdict/internal/app"
)

var (
	reanalyzeFrom string
	reanalyzeTo   string
)

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Re-run the current policy over stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reanalyzeFrom == "" || reanalyzeTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := parseTimeFlag("from", reanalyzeFrom)
		if err != nil {
			return err
		}
		to, err := parseTimeFlag("to", reanalyzeTo)
		if err != nil {
			return err
		}

		if !from.Before(*to) {
			return fmt.Errorf("--from must be before --to")
		}

		return getApp().Reanalyze(cmd.Context(), app.ReanalyzeOptions{From: *from, To: *to})
	},
}

func init() {
	reanalyzeCmd.Flags().StringVar(&reanalyzeFrom, "from", "", "Start of capture window (RFC3339, inclusive)")
	reanalyzeCmd.Flags().StringVar(&reanalyzeTo, "to", "", "End of capture window (RFC3339, exclusive)")
}
