package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert snapshot.json...",
	Short: "Analyse snapshot files and send the alerts they would trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("provide at least one snapshot file")
		}
		return getApp().SimulateAlert(cmd.Context(), args)
	},
}
