package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	chart "github.com/wcharczuk/go-chart/v2"

	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/product"
)

// Arbitrage compares one item across marketplaces.
func (a *App) Arbitrage(ctx context.Context, opts ArbitrageOptions) error {
	snapshots, err := a.arbitrageSnapshots(ctx, opts)
	if err != nil {
		return err
	}

	_, finder, err := a.newEngine()
	if err != nil {
		return err
	}
	result, err := finder.Find(snapshots)
	if err != nil {
		return err
	}

	if opts.PNGPath != "" {
		if err := writePricesPNG(opts.PNGPath, result, a.Config.Policy.CrossMarket.ReferenceCurrency); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("price chart written")
	}

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return writeArbitrageTable(a, result)
}

func (a *App) arbitrageSnapshots(ctx context.Context, opts ArbitrageOptions) ([]*product.Snapshot, error) {
	if len(opts.Files) > 0 {
		var snapshots []*product.Snapshot
		files := a.fileSource()
		for _, path := range opts.Files {
			loaded, err := files.LoadFile(path)
			if err != nil {
				return nil, err
			}
			snapshots = append(snapshots, loaded...)
		}
		return snapshots, nil
	}
	if opts.ASIN == "" {
		return nil, errors.New("provide snapshot files or --asin")
	}

	if opts.FromStore {
		store, closeStore, err := a.requireStore(ctx, "load stored snapshots")
		if err != nil {
			return nil, err
		}
		defer closeStore()

		stored, err := store.LatestSnapshotsForASIN(ctx, opts.ASIN)
		if err != nil {
			return nil, err
		}
		snapshots := make([]*product.Snapshot, 0, len(stored))
		for _, st := range stored {
			snapshots = append(snapshots, st.Snapshot)
		}
		return snapshots, nil
	}

	return a.fileSource().FetchAll(ctx, opts.ASIN)
}

func writeArbitrageTable(a *App, result analysis.ArbitrageResult) error {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "ASIN %s: %s\n\n", result.ASIN, result.Outcome)
	fmt.Fprintln(writer, "Market\tCurrency\tLocal\tReference")
	for _, p := range result.Prices {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			marketLabel(p.Marketplace), p.Currency, p.LocalPrice.StringFixed(2), p.ReferencePrice.StringFixed(2))
	}
	for _, skipped := range result.Skipped {
		fmt.Fprintf(writer, "skipped %s\n", skipped)
	}

	if o := result.Opportunity; o != nil {
		fmt.Fprintln(writer)
		fmt.Fprintf(writer, "Buy in %s at %s %s, sell in %s at %s %s\n",
			strings.ToUpper(o.BuyMarketplace), o.BuyPriceLocal.StringFixed(2), o.BuyCurrency,
			strings.ToUpper(o.SellMarketplace), o.SellPriceLocal.StringFixed(2), o.SellCurrency)
		fmt.Fprintf(writer, "Gross %s %s, margin %s%%: %s\n",
			o.GrossProfitReference.StringFixed(2), o.ReferenceCurrency, o.ProfitMarginPct.StringFixed(2), o.Recommendation)
	}
	return writer.Flush()
}

func writePricesPNG(path string, result analysis.ArbitrageResult, referenceCurrency string) error {
	if len(result.Prices) == 0 {
		return errors.New("no priced marketplace to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(result.Prices))
	top := 0.0
	for _, p := range result.Prices {
		top = max(top, p.ReferencePrice.InexactFloat64())
		bars = append(bars, chart.Value{
			Label: strings.ToUpper(p.Marketplace),
			Value: p.ReferencePrice.InexactFloat64(),
		})
	}

	graph := chart.BarChart{
		Title:  fmt.Sprintf("%s buy-box (%s)", result.ASIN, referenceCurrency),
		Width:  960,
		Height: 540,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		BarWidth: 60,
		Bars:     bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}
