package cli

import (
	"github.com/spf13/cobra"

	"merchant-verdict/internal/app"
)

var (
	importDir     string
	importAnalyze bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a directory of snapshots into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Import(cmd.Context(), app.ImportOptions{Dir: importDir, Analyze: importAnalyze})
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "", "Directory to scan (defaults to source.dir)")
	importCmd.Flags().BoolVar(&importAnalyze, "analyze", false, "Analyse and store a report for every imported snapshot")
}
