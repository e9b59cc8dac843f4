package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"merchant-verdict/internal/storage"
)

// Export renders stored report history as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.PNGPath != "" && opts.ASIN == "" {
		return errors.New("--png charts one item; pass --asin")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.requireStore(ctx, "export")
	if err != nil {
		return err
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListReportsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	records = filterByASIN(records, opts.ASIN)
	if len(records) == 0 {
		a.Logger.Info().Msg("no reports found for export window")
		return nil
	}

	downsampled := downsampleReports(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting reports")

	if opts.CSVPath != "" {
		if err := writeReportsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeReportsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func filterByASIN(records []storage.ReportRecord, asin string) []storage.ReportRecord {
	if asin == "" {
		return records
	}
	asin = strings.ToUpper(asin)
	kept := records[:0]
	for _, rec := range records {
		if rec.ASIN == asin {
			kept = append(kept, rec)
		}
	}
	return kept
}

func downsampleReports(records []storage.ReportRecord, max int) []storage.ReportRecord {
	if max <= 0 || len(records) <= max {
		return records
	}
	if max == 1 {
		return records[len(records)-1:]
	}

	result := make([]storage.ReportRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeReportsCSV(path string, records []storage.ReportRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"analyzed_at", "asin", "marketplace", "overall_verdict", "recommended_model", "net_profit", "roi_pct", "margin_pct", "pl_score", "risk_score", "data_quality", "engine_version"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		model := ""
		if rec.RecommendedModel != nil {
			model = string(*rec.RecommendedModel)
		}
		row := []string{
			rec.AnalyzedAt.UTC().Format(time.RFC3339),
			rec.ASIN,
			rec.Marketplace,
			string(rec.Overall),
			model,
			rec.NetProfit.String(),
			rec.ROIPct.String(),
			rec.MarginPct.String(),
			strconv.Itoa(rec.PLScore),
			strconv.Itoa(rec.RiskScore),
			rec.DataQuality.String(),
			rec.EngineVersion,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeReportsPNG(path string, records []storage.ReportRecord) error {
	if len(records) < 2 {
		return errors.New("a chart needs at least two reports")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(records))
	net := make([]float64, len(records))
	plScore := make([]float64, len(records))
	riskScore := make([]float64, len(records))

	for i, rec := range records {
		x[i] = rec.AnalyzedAt
		net[i] = rec.NetProfit.InexactFloat64()
		plScore[i] = float64(rec.PLScore)
		riskScore[i] = float64(rec.RiskScore)
	}

	moneyFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  records[0].ASIN,
		Width:  1280,
		Height: 720,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Net profit",
			ValueFormatter: moneyFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:  "Score (0-100)",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Net profit",
				XValues: x,
				YValues: net,
			},
			chart.TimeSeries{
				Name:    "PL score",
				XValues: x,
				YValues: plScore,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Risk score",
				XValues: x,
				YValues: riskScore,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	if lo, hi := bounds(net); lo == hi {
		// go-chart refuses a zero-height range
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func bounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
