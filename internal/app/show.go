package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"merchant-verdict/internal/storage"
)

// Show prints recent reports, or recent alerts with opts.Alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.requireStore(ctx, "show reports")
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Alerts {
		return a.showAlerts(ctx, store, opts.Limit)
	}

	var records []storage.ReportRecord
	if opts.ASIN != "" {
		records, err = store.ListReportsForASIN(ctx, opts.ASIN, opts.Limit)
	} else {
		records, err = store.ListRecentReports(ctx, opts.Limit)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no reports found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Analyzed (UTC)\tASIN\tMarket\tVerdict\tModel\tNet\tROI%\tPL\tRisk\tEngine")
	for _, rec := range records {
		model := "-"
		if rec.RecommendedModel != nil {
			model = string(*rec.RecommendedModel)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			rec.AnalyzedAt.UTC().Format(time.RFC3339),
			rec.ASIN,
			marketLabel(rec.Marketplace),
			rec.Overall,
			model,
			rec.NetProfit.StringFixed(2),
			rec.ROIPct.StringFixed(1),
			rec.PLScore,
			rec.RiskScore,
			rec.EngineVersion,
		)
	}
	return writer.Flush()
}

func (a *App) showAlerts(ctx context.Context, store storage.AlertStore, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(a.Out, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Sent (UTC)\tKind\tASIN\tKey\tMessage")
	for _, alert := range alerts {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.Kind,
			alert.ASIN,
			alert.DedupeKey,
			sanitizeInline(alert.Message),
		)
	}
	return writer.Flush()
}
