// Package analysis is the decision pipeline: profitability, private-label
// opportunity, risk, verdicts, and cross-market arbitrage.
package analysis

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RiskLevel is a qualitative risk bucket.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// VelocityGrade describes how fast capital turns over.
type VelocityGrade string

const (
	VelocitySprinter VelocityGrade = "sprinter"
	VelocitySteady   VelocityGrade = "steady"
	VelocitySlow     VelocityGrade = "slow"
)

// Decision is a go/no-go outcome.
type Decision string

const (
	DecisionGo          Decision = "go"
	DecisionNoGo        Decision = "no_go"
	DecisionConditional Decision = "conditional"
)

// Strategy names a business model.
type Strategy string

const (
	StrategyArbitrage    Strategy = "arbitrage"
	StrategyDropshipping Strategy = "dropshipping"
	StrategyPrivateLabel Strategy = "private_label"
)

// Profitability is the reseller/dropshipper economics of a listing.
type Profitability struct {
	BuyBoxPrice           decimal.Decimal `json:"buy_box_price"`
	ReferralFee           decimal.Decimal `json:"amazon_fees"`
	FulfillmentCost       decimal.Decimal `json:"fba_costs"`
	OverheadCost          decimal.Decimal `json:"overhead_cost"`
	NetProfit             decimal.Decimal `json:"net_profit"`
	ROIPercentage         decimal.Decimal `json:"roi_percentage"`
	MarginPercentage      decimal.Decimal `json:"margin_percentage"`
	BuyBoxRisk            RiskLevel       `json:"buybox_risk_level"`
	PlatformIsSeller      bool            `json:"amazon_is_seller"`
	FBASellerCount        int             `json:"fba_seller_count"`
	TotalOfferCount       int             `json:"total_offer_count"`
	Velocity              VelocityGrade   `json:"velocity_grade"`
	RankTrend             string          `json:"bsr_trend"`
	EstimatedMonthlySales int             `json:"estimated_monthly_sales"`
	CapitalTurnoverDays   *int            `json:"capital_turnover_days"`
}

// ScoreBreakdown holds the four bucketed private-label sub-scores.
type ScoreBreakdown struct {
	Velocity       int `json:"velocity_score"`
	RatingGap      int `json:"rating_gap_score"`
	Competition    int `json:"competition_score"`
	ReviewMomentum int `json:"momentum_score"`
}

// SentimentGap is an improvement opportunity drawn from a negative keyword.
type SentimentGap struct {
	Keyword              string  `json:"keyword"`
	FrequencyScore       float64 `json:"frequency_score"`
	ImprovementPotential string  `json:"improvement_potential"`
}

// DemandSignals summarise the demand inputs behind the opportunity score.
type DemandSignals struct {
	ReviewVelocityMonthly int    `json:"review_velocity_monthly"`
	EstimatedMonthlySales int    `json:"estimated_monthly_sales"`
	BestSellerRank        int    `json:"bsr_current"`
	DemandLevel           string `json:"demand_level"`
}

// Opportunity is the private-label assessment.
type Opportunity struct {
	Score                     int             `json:"pl_score"`
	Breakdown                 ScoreBreakdown  `json:"pl_score_breakdown"`
	SentimentGaps             []SentimentGap  `json:"sentiment_gaps"`
	HasImprovementOpportunity bool            `json:"has_improvement_opportunity"`
	TargetCOGS                decimal.Decimal `json:"target_cogs"`
	ProjectedMarginPct        decimal.Decimal `json:"projected_pl_margin"`
	ProjectedProfit           decimal.Decimal `json:"projected_pl_profit"`
	DemandSignals             DemandSignals   `json:"market_demand_signals"`
	CompetitionLevel          RiskLevel       `json:"competition_level"`
}

// RiskProfile is the defensive assessment.
type RiskProfile struct {
	IPRiskLevel         RiskLevel `json:"ip_risk_level"`
	IPAutoReject        bool      `json:"ip_auto_reject"`
	PriceStabilityScore float64   `json:"price_stability_score"`
	PriceWarDetected    bool      `json:"price_war_detected"`
	ReturnRateRisk      RiskLevel `json:"return_rate_risk"`
	SeasonalRisk        string    `json:"seasonal_risk"`
	OverallRiskScore    int       `json:"overall_risk_score"`
	RiskFlags           []string  `json:"risk_flags"`
}

// Verdict carries per-strategy decisions and the overall recommendation.
type Verdict struct {
	Arbitrage          Decision  `json:"arbitrage_verdict"`
	ArbitrageReason    string    `json:"arbitrage_reason"`
	Dropshipping       Decision  `json:"dropshipping_verdict"`
	DropshippingReason string    `json:"dropshipping_reason"`
	PrivateLabel       Decision  `json:"private_label_verdict"`
	PrivateLabelReason string    `json:"private_label_reason"`
	RecommendedModel   *Strategy `json:"recommended_model"`
	Overall            Decision  `json:"overall_verdict"`
	Summary            string    `json:"summary"`
}

// Report bundles every sub-result of one analysis. It is read-only once built.
type Report struct {
	ID               uuid.UUID     `json:"id"`
	ASIN             string        `json:"asin"`
	Marketplace      string        `json:"marketplace,omitempty"`
	Title            string        `json:"title"`
	Brand            string        `json:"brand,omitempty"`
	Category         string        `json:"category,omitempty"`
	Profitability    Profitability `json:"arbitrage_analysis"`
	Opportunity      Opportunity   `json:"private_label_analysis"`
	Risk             RiskProfile   `json:"risk_analysis"`
	Verdict          Verdict       `json:"verdict"`
	DataQualityScore float64       `json:"data_quality_score"`
	AnalyzedAt       time.Time     `json:"analysis_timestamp"`
	EngineVersion    string        `json:"engine_version"`
}

// ArbitrageTier is the qualitative cross-market recommendation.
type ArbitrageTier string

const (
	TierStrongBuy      ArbitrageTier = "strong_buy"
	TierConditional    ArbitrageTier = "conditional"
	TierMarginal       ArbitrageTier = "marginal"
	TierNotRecommended ArbitrageTier = "not_recommended"
)

// ArbitrageOutcome says whether a cross-market pass produced an opportunity.
type ArbitrageOutcome string

const (
	OutcomeOpportunity      ArbitrageOutcome = "opportunity"
	OutcomeInsufficientData ArbitrageOutcome = "insufficient_data"
	OutcomeNoOpportunity    ArbitrageOutcome = "no_opportunity"
)

// MarketPrice is one marketplace's buy-box in local and reference currency.
type MarketPrice struct {
	Marketplace    string          `json:"marketplace"`
	Currency       string          `json:"currency"`
	LocalPrice     decimal.Decimal `json:"local_price"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

// ArbitrageOpportunity is the best buy/sell pair across marketplaces.
type ArbitrageOpportunity struct {
	ASIN                 string          `json:"asin"`
	Title                string          `json:"title"`
	ReferenceCurrency    string          `json:"reference_currency"`
	BuyMarketplace       string          `json:"buy_marketplace"`
	BuyCurrency          string          `json:"buy_currency"`
	BuyPriceLocal        decimal.Decimal `json:"buy_price_local"`
	BuyPriceReference    decimal.Decimal `json:"buy_price_reference"`
	SellMarketplace      string          `json:"sell_marketplace"`
	SellCurrency         string          `json:"sell_currency"`
	SellPriceLocal       decimal.Decimal `json:"sell_price_local"`
	SellPriceReference   decimal.Decimal `json:"sell_price_reference"`
	GrossProfitReference decimal.Decimal `json:"gross_profit_reference"`
	ProfitMarginPct      decimal.Decimal `json:"profit_margin_pct"`
	Recommendation       ArbitrageTier   `json:"recommendation"`
}

// ArbitrageResult is the cross-market analysis for one item.
type ArbitrageResult struct {
	ASIN        string                `json:"asin"`
	Outcome     ArbitrageOutcome      `json:"outcome"`
	Prices      []MarketPrice         `json:"prices"`
	Skipped     []string              `json:"skipped,omitempty"`
	Opportunity *ArbitrageOpportunity `json:"opportunity,omitempty"`
}
