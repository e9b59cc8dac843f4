package cli

import (
	"github.com/spf13/cobra"

	"merchant-verdict/internal/app"
)

var (
	arbitrageASIN      string
	arbitrageFromStore bool
	arbitrageJSON      bool
	arbitragePNGPath   string
)

var arbitrageCmd = &cobra.Command{
	Use:   "arbitrage [snapshot.json...]",
	Short: "Compare one item's buy-box price across marketplaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ArbitrageOptions{
			Files:     args,
			ASIN:      arbitrageASIN,
			FromStore: arbitrageFromStore,
			JSON:      arbitrageJSON,
			PNGPath:   arbitragePNGPath,
		}
		return getApp().Arbitrage(cmd.Context(), opts)
	},
}

func init() {
	arbitrageCmd.Flags().StringVar(&arbitrageASIN, "asin", "", "ASIN to compare across every marketplace in the source directory")
	arbitrageCmd.Flags().BoolVar(&arbitrageFromStore, "from-store", false, "Use the latest stored snapshots instead of the source directory")
	arbitrageCmd.Flags().BoolVar(&arbitrageJSON, "json", false, "Print the result as JSON")
	arbitrageCmd.Flags().StringVar(&arbitragePNGPath, "png", "", "Path to write a price comparison chart")
}
