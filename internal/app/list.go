package app

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"merchant-verdict/internal/analysis"
)

// List prints the newest stored snapshot of each item and marketplace.
func (a *App) List(ctx context.Context, opts ListOptions) error {
	store, closeStore, err := a.requireStore(ctx, "list snapshots")
	if err != nil {
		return err
	}
	defer closeStore()

	stored, err := store.ListLatestSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		fmt.Fprintln(a.Out, "no snapshots stored")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ASIN\tMarket\tCaptured (UTC)\tBuy box\tRank\tTitle")
	for _, st := range stored {
		s := st.Snapshot
		price := "-"
		if s.Pricing.BuyBoxPrice.Valid {
			price = s.Pricing.BuyBoxPrice.Decimal.StringFixed(2) + " " + s.ResolvedCurrency()
		}
		rank := "-"
		if s.Sales.BestSellerRank.Valid {
			rank = fmt.Sprintf("%d", s.Sales.BestSellerRank.Value)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			st.ASIN,
			marketLabel(st.Marketplace),
			st.CapturedAt.UTC().Format(time.RFC3339),
			price,
			rank,
			sanitizeInline(s.Identification.Title),
		)
	}
	return writer.Flush()
}

// Stats prints database totals and the verdict distribution.
func (a *App) Stats(ctx context.Context) error {
	store, closeStore, err := a.requireStore(ctx, "compute stats")
	if err != nil {
		return err
	}
	defer closeStore()

	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Snapshots\t%d\n", st.Snapshots)
	fmt.Fprintf(writer, "Items\t%d\n", st.Items)
	fmt.Fprintf(writer, "Marketplaces\t%d\n", st.Marketplaces)
	fmt.Fprintf(writer, "Reports\t%d\n", st.Reports)
	fmt.Fprintf(writer, "Alerts\t%d\n", st.Alerts)
	last := "never"
	if st.LastAnalyzedAt != nil {
		last = st.LastAnalyzedAt.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(writer, "Last analysis\t%s\n", last)

	verdicts := make([]string, 0, len(st.ByVerdict))
	for v := range st.ByVerdict {
		verdicts = append(verdicts, string(v))
	}
	sort.Strings(verdicts)
	for _, v := range verdicts {
		fmt.Fprintf(writer, "Verdict %s\t%d\n", v, st.ByVerdict[analysis.Decision(v)])
	}
	return writer.Flush()
}
