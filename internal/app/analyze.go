package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/product"
	"merchant-verdict/internal/storage"
)

// Analyze runs the engine over snapshots from files, the configured source, or
// the store, and prints a table or JSON.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	if len(opts.Files) == 0 && len(opts.ASINs) == 0 {
		return errors.New("provide snapshot files or --asin")
	}

	var store *storage.Store
	if opts.Save || opts.FromStore {
		s, closeStore, err := a.requireStore(ctx, "load or save reports")
		if err != nil {
			return err
		}
		defer closeStore()
		store = s
	}

	snapshots, err := a.collectSnapshots(ctx, store, opts)
	if err != nil {
		return err
	}

	svc, err := a.newService(store, nil, nil)
	if err != nil {
		return err
	}
	reports, failed, err := svc.Analyze(ctx, snapshots, opts.Save)
	if err != nil {
		return err
	}
	if failed > 0 {
		a.Logger.Warn().Int("failed", failed).Msg("some snapshots could not be analysed")
	}
	if len(reports) == 0 {
		return errors.New("no snapshot could be analysed")
	}

	if opts.JSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	}
	return writeReportTable(a, reports)
}

func (a *App) collectSnapshots(ctx context.Context, store *storage.Store, opts AnalyzeOptions) ([]*product.Snapshot, error) {
	var snapshots []*product.Snapshot

	files := a.fileSource()
	for _, path := range opts.Files {
		loaded, err := files.LoadFile(path)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, loaded...)
	}

	if len(opts.ASINs) == 0 {
		return snapshots, nil
	}

	if opts.FromStore {
		for _, asin := range opts.ASINs {
			var stored []storage.StoredSnapshot
			if opts.Marketplace != "" {
				one, err := store.LatestSnapshot(ctx, asin, opts.Marketplace)
				if err != nil {
					return nil, err
				}
				stored = append(stored, one)
			} else {
				all, err := store.LatestSnapshotsForASIN(ctx, asin)
				if err != nil {
					return nil, err
				}
				if len(all) == 0 {
					return nil, fmt.Errorf("%w: no stored snapshot for %s", storage.ErrNotFound, asin)
				}
				stored = append(stored, all...)
			}
			for _, st := range stored {
				snapshots = append(snapshots, st.Snapshot)
			}
		}
		return snapshots, nil
	}

	src, err := a.newSource()
	if err != nil {
		return nil, err
	}
	market := opts.Marketplace
	if market == "" {
		market = a.Config.Source.DefaultMarketplace
	}
	for _, asin := range opts.ASINs {
		s, err := src.Fetch(ctx, market, asin)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

func writeReportTable(a *App, reports []*analysis.Report) error {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ASIN\tMarket\tVerdict\tModel\tNet\tROI%\tMargin%\tPL\tRisk\tSummary")
	for _, r := range reports {
		model := "-"
		if r.Verdict.RecommendedModel != nil {
			model = string(*r.Verdict.RecommendedModel)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ASIN,
			marketLabel(r.Marketplace),
			r.Verdict.Overall,
			model,
			r.Profitability.NetProfit.StringFixed(2),
			r.Profitability.ROIPercentage.StringFixed(1),
			r.Profitability.MarginPercentage.StringFixed(1),
			r.Opportunity.Score,
			r.Risk.OverallRiskScore,
			sanitizeInline(r.Verdict.Summary),
		)
	}
	return writer.Flush()
}

func marketLabel(code string) string {
	if code == "" {
		return "-"
	}
	return strings.ToUpper(code)
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
