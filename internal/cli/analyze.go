package cli

import (
	"github.com/spf13/cobra"

	"merchant-verdict/internal/app"
)

var (
	analyzeASINs       []string
	analyzeMarketplace string
	analyzeFromStore   bool
	analyzeJSON        bool
	analyzeSave        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [snapshot.json...]",
	Short: "Produce a verdict report for each product snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{
			Files:       args,
			ASINs:       analyzeASINs,
			Marketplace: analyzeMarketplace,
			FromStore:   analyzeFromStore,
			JSON:        analyzeJSON,
			Save:        analyzeSave,
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeASINs, "asin", nil, "ASIN to load from the configured source (repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeMarketplace, "marketplace", "", "Marketplace code for --asin lookups (defaults to config)")
	analyzeCmd.Flags().BoolVar(&analyzeFromStore, "from-store", false, "Load --asin snapshots from the database instead of the source")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print full reports as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Persist reports to the database")
}
