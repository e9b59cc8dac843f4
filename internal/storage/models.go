package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"merchant-verdict/internal/analysis"
	"merchant-verdict/internal/product"
)

// StoredSnapshot is a persisted snapshot with its row metadata.
type StoredSnapshot struct {
	ID          int64
	ASIN        string
	Marketplace string
	CapturedAt  time.Time
	Snapshot    *product.Snapshot
}

// ReportRecord is the queryable summary of a stored report. Report holds the full
// document when it was loaded.
type ReportRecord struct {
	ID               uuid.UUID
	ASIN             string
	Marketplace      string
	Overall          analysis.Decision
	RecommendedModel *analysis.Strategy
	NetProfit        decimal.Decimal
	ROIPct           decimal.Decimal
	MarginPct        decimal.Decimal
	PLScore          int
	RiskScore        int
	DataQuality      decimal.Decimal
	EngineVersion    string
	AnalyzedAt       time.Time
	Report           *analysis.Report
}

// RecordFromReport flattens a report into its stored summary.
func RecordFromReport(r *analysis.Report) ReportRecord {
	return ReportRecord{
		ID:               r.ID,
		ASIN:             r.ASIN,
		Marketplace:      r.Marketplace,
		Overall:          r.Verdict.Overall,
		RecommendedModel: r.Verdict.RecommendedModel,
		NetProfit:        r.Profitability.NetProfit,
		ROIPct:           r.Profitability.ROIPercentage,
		MarginPct:        r.Profitability.MarginPercentage,
		PLScore:          r.Opportunity.Score,
		RiskScore:        r.Risk.OverallRiskScore,
		DataQuality:      decimal.NewFromFloat(r.DataQualityScore),
		EngineVersion:    r.EngineVersion,
		AnalyzedAt:       r.AnalyzedAt,
		Report:           r,
	}
}

// AlertRecord captures an emitted alert for auditing.
type AlertRecord struct {
	ID        int64
	Kind      string
	DedupeKey string
	ASIN      string
	Message   string
	CreatedAt time.Time
}

// Stats summarises the database contents.
type Stats struct {
	Snapshots      int64
	Items          int64
	Marketplaces   int64
	Reports        int64
	Alerts         int64
	ByVerdict      map[analysis.Decision]int64
	LastAnalyzedAt *time.Time
}
