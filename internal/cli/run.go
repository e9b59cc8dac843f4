package cli

import (
	"github.com/spf13/cobra"
)

var runServe bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduled sweep service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context(), runServe)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Migrate(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runServe, "serve", false, "Also serve the HTTP API")
}
