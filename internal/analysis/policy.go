package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy is the read-only table of weights, thresholds, and fee rates.
// It is loaded once and handed by value to every component.
type Policy struct {
	RoundingPlaces int32              `mapstructure:"rounding_places"`
	Defaults       InputDefaults      `mapstructure:"defaults"`
	Fees           FeePolicy          `mapstructure:"fees"`
	Velocity       VelocityPolicy     `mapstructure:"velocity"`
	Turnover       TurnoverPolicy     `mapstructure:"turnover"`
	BuyBox         BuyBoxPolicy       `mapstructure:"buy_box"`
	PrivateLabel   PrivateLabelPolicy `mapstructure:"private_label"`
	Risk           RiskPolicy         `mapstructure:"risk"`
	Verdict        VerdictPolicy      `mapstructure:"verdict"`
	CrossMarket    CrossMarketPolicy  `mapstructure:"cross_market"`
	Remediation    []RemediationRule  `mapstructure:"remediation"`
	GenericRemedy  string             `mapstructure:"generic_remediation"`
}

// InputDefaults are substituted for absent snapshot fields.
type InputDefaults struct {
	PackageWeightGrams float64 `mapstructure:"package_weight_grams"`
	BestSellerRank     int     `mapstructure:"best_seller_rank"`
	Rating             float64 `mapstructure:"rating"`
	PriceStability     float64 `mapstructure:"price_stability"`
	SeasonalLabel      string  `mapstructure:"seasonal_label"`
}

// FeePolicy drives fulfillment and overhead estimates.
type FeePolicy struct {
	OverheadPct         float64 `mapstructure:"overhead_pct"`
	FulfillmentBase     float64 `mapstructure:"fulfillment_base"`
	WeightRatePerKg     float64 `mapstructure:"weight_rate_per_kg"`
	StoragePerCubicFoot float64 `mapstructure:"storage_per_cubic_foot"`
	DefaultStorageCost  float64 `mapstructure:"default_storage_cost"`
}

// VelocityTier is one rung of the velocity ladder.
type VelocityTier struct {
	MaxRankChangePct float64 `mapstructure:"max_rank_change_pct"`
	MinMonthlySales  int     `mapstructure:"min_monthly_sales"`
}

// VelocityPolicy holds the sprinter and steady tiers, checked in that order.
type VelocityPolicy struct {
	Sprinter VelocityTier `mapstructure:"sprinter"`
	Steady   VelocityTier `mapstructure:"steady"`
}

// TurnoverPolicy controls the days-to-sell-through estimate.
type TurnoverPolicy struct {
	WindowDays  int `mapstructure:"window_days"`
	VolumeFloor int `mapstructure:"volume_floor"`
	SlowDays    int `mapstructure:"slow_days"`
}

// BuyBoxPolicy holds the buy-box competition thresholds.
type BuyBoxPolicy struct {
	HighSellerCount   int `mapstructure:"high_seller_count"`
	MediumSellerCount int `mapstructure:"medium_seller_count"`
	MediumOfferCount  int `mapstructure:"medium_offer_count"`
}

// ScoreWeights weight the four private-label sub-scores. They must sum to 1.
type ScoreWeights struct {
	Velocity       float64 `mapstructure:"velocity"`
	RatingGap      float64 `mapstructure:"rating_gap"`
	Competition    float64 `mapstructure:"competition"`
	ReviewMomentum float64 `mapstructure:"review_momentum"`
}

// PrivateLabelPolicy drives the opportunity scorer.
type PrivateLabelPolicy struct {
	COGSRatio         float64      `mapstructure:"cogs_ratio"`
	Weights           ScoreWeights `mapstructure:"weights"`
	MaxKeywords       int          `mapstructure:"max_keywords"`
	RankCeiling       int          `mapstructure:"rank_ceiling"`
	RatingCeiling     float64      `mapstructure:"rating_ceiling"`
	CompetitionMedium int          `mapstructure:"competition_medium"`
	CompetitionHigh   int          `mapstructure:"competition_high"`
	DemandHighSales   int          `mapstructure:"demand_high_sales"`
	DemandMediumSales int          `mapstructure:"demand_medium_sales"`
}

// RiskPoints are the fixed contributions to the aggregate risk score.
type RiskPoints struct {
	IPHigh      int `mapstructure:"ip_high"`
	IPMedium    int `mapstructure:"ip_medium"`
	PriceWar    int `mapstructure:"price_war"`
	HighReturns int `mapstructure:"high_returns"`
	Seasonal    int `mapstructure:"seasonal"`
}

// RiskPolicy drives the risk assessor.
type RiskPolicy struct {
	PriceWarStability float64    `mapstructure:"price_war_stability"`
	ReturnRateHigh    float64    `mapstructure:"return_rate_high"`
	ReturnRateMedium  float64    `mapstructure:"return_rate_medium"`
	Points            RiskPoints `mapstructure:"points"`
	MaxScore          int        `mapstructure:"max_score"`
}

// VerdictPolicy holds the go/no-go floors.
type VerdictPolicy struct {
	ArbitrageMinProfit            float64 `mapstructure:"arbitrage_min_profit"`
	ArbitrageMinROIPct            float64 `mapstructure:"arbitrage_min_roi_pct"`
	ArbitrageMinMarginPct         float64 `mapstructure:"arbitrage_min_margin_pct"`
	ArbitrageConditionalMinProfit float64 `mapstructure:"arbitrage_conditional_min_profit"`
	PrivateLabelMinScore          int     `mapstructure:"private_label_min_score"`
	PrivateLabelConditionalScore  int     `mapstructure:"private_label_conditional_score"`
}

// MarginBands are the cross-market recommendation bands, most favourable first.
type MarginBands struct {
	StrongBuyPct   float64 `mapstructure:"strong_buy_pct"`
	ConditionalPct float64 `mapstructure:"conditional_pct"`
	MarginalPct    float64 `mapstructure:"marginal_pct"`
}

// CrossMarketPolicy holds the static exchange-rate table.
type CrossMarketPolicy struct {
	ReferenceCurrency string             `mapstructure:"reference_currency"`
	Rates             map[string]float64 `mapstructure:"rates"`
	Bands             MarginBands        `mapstructure:"bands"`
	MaxTitleLength    int                `mapstructure:"max_title_length"`
}

// RemediationRule maps a keyword substring onto an improvement suggestion.
type RemediationRule struct {
	Match      string `mapstructure:"match"`
	Suggestion string `mapstructure:"suggestion"`
}

// DefaultRemediation is the ordered keyword table; the first matching substring wins.
func DefaultRemediation() []RemediationRule {
	return []RemediationRule{
		{Match: "plastic", Suggestion: "Use premium materials (metal, glass, BPA-free)"},
		{Match: "taste", Suggestion: "Food-grade certification, better materials"},
		{Match: "small", Suggestion: "Offer larger capacity variant"},
		{Match: "capacity", Suggestion: "Increase size or offer size options"},
		{Match: "break", Suggestion: "Reinforce durability, add protective features"},
		{Match: "fragile", Suggestion: "Use shatter-resistant materials"},
		{Match: "instructions", Suggestion: "Include comprehensive manual/video guide"},
		{Match: "leak", Suggestion: "Improve sealing mechanism"},
		{Match: "cheap", Suggestion: "Upgrade materials and finish quality"},
		{Match: "flimsy", Suggestion: "Strengthen construction, use better materials"},
	}
}

// DefaultRates is the static exchange-rate table into USD.
func DefaultRates() map[string]float64 {
	return map[string]float64{
		"USD": 1.0,
		"GBP": 1.26,
		"EUR": 1.08,
		"CAD": 0.74,
		"JPY": 0.0067,
		"AUD": 0.65,
	}
}

// DefaultPolicy returns the production policy table.
func DefaultPolicy() Policy {
	return Policy{
		RoundingPlaces: 2,
		Defaults: InputDefaults{
			PackageWeightGrams: 500,
			BestSellerRank:     999999,
			Rating:             5.0,
			PriceStability:     1.0,
			SeasonalLabel:      "non-seasonal",
		},
		Fees: FeePolicy{
			OverheadPct:         0.15,
			FulfillmentBase:     3.00,
			WeightRatePerKg:     0.50,
			StoragePerCubicFoot: 0.75,
			DefaultStorageCost:  0.25,
		},
		Velocity: VelocityPolicy{
			Sprinter: VelocityTier{MaxRankChangePct: -10, MinMonthlySales: 500},
			Steady:   VelocityTier{MaxRankChangePct: 0, MinMonthlySales: 200},
		},
		Turnover: TurnoverPolicy{WindowDays: 30, VolumeFloor: 100, SlowDays: 90},
		BuyBox:   BuyBoxPolicy{HighSellerCount: 10, MediumSellerCount: 5, MediumOfferCount: 15},
		PrivateLabel: PrivateLabelPolicy{
			COGSRatio: 0.25,
			Weights: ScoreWeights{
				Velocity:       0.30,
				RatingGap:      0.25,
				Competition:    0.25,
				ReviewMomentum: 0.20,
			},
			MaxKeywords:       5,
			RankCeiling:       5000,
			RatingCeiling:     4.5,
			CompetitionMedium: 3,
			CompetitionHigh:   8,
			DemandHighSales:   500,
			DemandMediumSales: 200,
		},
		Risk: RiskPolicy{
			PriceWarStability: 0.5,
			ReturnRateHigh:    0.10,
			ReturnRateMedium:  0.05,
			Points:            RiskPoints{IPHigh: 40, IPMedium: 15, PriceWar: 25, HighReturns: 20, Seasonal: 10},
			MaxScore:          100,
		},
		Verdict: VerdictPolicy{
			ArbitrageMinProfit:            5.0,
			ArbitrageMinROIPct:            20.0,
			ArbitrageMinMarginPct:         15.0,
			ArbitrageConditionalMinProfit: 3.0,
			PrivateLabelMinScore:          60,
			PrivateLabelConditionalScore:  40,
		},
		CrossMarket: CrossMarketPolicy{
			ReferenceCurrency: "USD",
			Rates:             DefaultRates(),
			Bands:             MarginBands{StrongBuyPct: 20, ConditionalPct: 10, MarginalPct: 5},
			MaxTitleLength:    60,
		},
		Remediation:   DefaultRemediation(),
		GenericRemedy: "Address customer pain point",
	}
}

// Validate checks internal consistency of the table.
func (p Policy) Validate() error {
	if p.RoundingPlaces < 0 {
		return fmt.Errorf("policy.rounding_places cannot be negative")
	}
	w := p.PrivateLabel.Weights
	if !finite(w.Velocity, w.RatingGap, w.Competition, w.ReviewMomentum, p.PrivateLabel.COGSRatio,
		p.Fees.OverheadPct, p.Fees.FulfillmentBase, p.Fees.WeightRatePerKg,
		p.Fees.StoragePerCubicFoot, p.Fees.DefaultStorageCost, p.Defaults.PackageWeightGrams) {
		return fmt.Errorf("policy fees, weights and defaults must be finite numbers")
	}
	if p.PrivateLabel.MaxKeywords < 0 {
		return fmt.Errorf("policy.private_label.max_keywords cannot be negative")
	}
	sum := decimal.NewFromFloat(w.Velocity).
		Add(decimal.NewFromFloat(w.RatingGap)).
		Add(decimal.NewFromFloat(w.Competition)).
		Add(decimal.NewFromFloat(w.ReviewMomentum))
	if !sum.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("policy.private_label.weights must sum to 1.0, got %s", sum.String())
	}
	if p.Fees.OverheadPct < 0 || p.Fees.OverheadPct >= 1 {
		return fmt.Errorf("policy.fees.overhead_pct must be within [0,1)")
	}
	if p.Velocity.Sprinter.MaxRankChangePct > p.Velocity.Steady.MaxRankChangePct ||
		p.Velocity.Sprinter.MinMonthlySales < p.Velocity.Steady.MinMonthlySales {
		return fmt.Errorf("policy.velocity.sprinter must be at least as strict as steady")
	}
	if p.Turnover.VolumeFloor <= 0 || p.Turnover.WindowDays <= 0 {
		return fmt.Errorf("policy.turnover window_days and volume_floor must be positive")
	}
	if p.BuyBox.MediumSellerCount > p.BuyBox.HighSellerCount {
		return fmt.Errorf("policy.buy_box.medium_seller_count cannot exceed high_seller_count")
	}
	if p.Risk.ReturnRateMedium > p.Risk.ReturnRateHigh {
		return fmt.Errorf("policy.risk.return_rate_medium cannot exceed return_rate_high")
	}
	if p.Verdict.ArbitrageConditionalMinProfit > p.Verdict.ArbitrageMinProfit {
		return fmt.Errorf("policy.verdict.arbitrage_conditional_min_profit cannot exceed arbitrage_min_profit")
	}
	if p.Verdict.PrivateLabelConditionalScore > p.Verdict.PrivateLabelMinScore {
		return fmt.Errorf("policy.verdict.private_label_conditional_score cannot exceed private_label_min_score")
	}
	b := p.CrossMarket.Bands
	if !(b.StrongBuyPct >= b.ConditionalPct && b.ConditionalPct >= b.MarginalPct) {
		return fmt.Errorf("policy.cross_market.bands must be descending")
	}
	ref := strings.ToUpper(p.CrossMarket.ReferenceCurrency)
	rate, ok := p.rate(ref)
	if !ok {
		return fmt.Errorf("policy.cross_market.rates has no entry for reference currency %q", ref)
	}
	if !rate.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("policy.cross_market.rates[%s] must be 1.0", ref)
	}
	for code, r := range p.CrossMarket.Rates {
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("policy.cross_market.rates[%s] must be positive", code)
		}
	}
	for i, rule := range p.Remediation {
		if strings.TrimSpace(rule.Match) == "" {
			return fmt.Errorf("policy.remediation[%d].match cannot be empty", i)
		}
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// rate looks a currency up case-insensitively; viper lower-cases map keys.
func (p Policy) rate(code string) (decimal.Decimal, bool) {
	for k, v := range p.CrossMarket.Rates {
		if strings.EqualFold(k, code) {
			return decimal.NewFromFloat(v), true
		}
	}
	return decimal.Decimal{}, false
}
