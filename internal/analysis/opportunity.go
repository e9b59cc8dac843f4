package analysis

import (
	"strings"

	"github.com/shopspring/decimal"

	"merchant-verdict/internal/product"
)

// bucket maps a threshold to a sub-score. Tables are scanned top to bottom.
type bucket struct {
	threshold float64
	score     int
}

var (
	// monthly sales, at least threshold
	velocityBuckets = []bucket{{1000, 100}, {500, 80}, {200, 50}}
	velocityFloor   = 20

	// average rating, strictly below threshold
	ratingGapBuckets = []bucket{{3.5, 100}, {4.0, 80}, {4.5, 50}}
	ratingGapFloor   = 20

	// competing FBA sellers, at most threshold
	competitionBuckets = []bucket{{2, 100}, {5, 70}, {10, 40}}
	competitionFloor   = 10

	// monthly review arrivals, at least threshold
	momentumBuckets = []bucket{{100, 100}, {50, 70}, {20, 40}}
	momentumFloor   = 15
)

// OpportunityScorer estimates how favourable a listing is for private-label replication.
type OpportunityScorer struct {
	policy Policy
}

// NewOpportunityScorer builds a scorer bound to a policy table.
func NewOpportunityScorer(policy Policy) *OpportunityScorer {
	return &OpportunityScorer{policy: policy}
}

// Score evaluates a snapshot.
func (o *OpportunityScorer) Score(s *product.Snapshot) Opportunity {
	return o.score(resolve(s, o.policy.Defaults))
}

func (o *OpportunityScorer) score(f facts) Opportunity {
	pl := o.policy.PrivateLabel
	places := o.policy.RoundingPlaces

	basis := f.listPrice
	if basis.IsZero() {
		basis = f.buyBox
	}
	targetCOGS := basis.Mul(dec(pl.COGSRatio))
	overhead := f.buyBox.Mul(dec(o.policy.Fees.OverheadPct))
	projectedProfit := f.buyBox.Sub(targetCOGS).Sub(overhead)

	gaps := o.SentimentGaps(f.negativeWords)
	breakdown := ScoreBreakdown{
		Velocity:       atLeast(float64(f.monthlySales), velocityBuckets, velocityFloor),
		RatingGap:      below(f.rating, ratingGapBuckets, ratingGapFloor),
		Competition:    atMost(float64(f.fbaSellers), competitionBuckets, competitionFloor),
		ReviewMomentum: atLeast(float64(f.reviewVelocity), momentumBuckets, momentumFloor),
	}

	improvable := f.rank < pl.RankCeiling && f.rating < pl.RatingCeiling && len(gaps) > 0

	return Opportunity{
		Score:                     CompositeScore(breakdown, pl.Weights),
		Breakdown:                 breakdown,
		SentimentGaps:             gaps,
		HasImprovementOpportunity: improvable,
		TargetCOGS:                targetCOGS.Round(places),
		ProjectedMarginPct:        percentOf(projectedProfit, f.buyBox).Round(places),
		ProjectedProfit:           projectedProfit.Round(places),
		DemandSignals: DemandSignals{
			ReviewVelocityMonthly: f.reviewVelocity,
			EstimatedMonthlySales: f.monthlySales,
			BestSellerRank:        f.rank,
			DemandLevel:           o.demandLevel(f.monthlySales),
		},
		CompetitionLevel: o.CompetitionLevel(f.fbaSellers),
	}
}

// CompositeScore weights the sub-scores, truncates to an integer, and clamps to [0,100].
func CompositeScore(b ScoreBreakdown, w ScoreWeights) int {
	total := decimal.NewFromInt(int64(b.Velocity)).Mul(dec(w.Velocity)).
		Add(decimal.NewFromInt(int64(b.RatingGap)).Mul(dec(w.RatingGap))).
		Add(decimal.NewFromInt(int64(b.Competition)).Mul(dec(w.Competition))).
		Add(decimal.NewFromInt(int64(b.ReviewMomentum)).Mul(dec(w.ReviewMomentum)))

	score := total.IntPart()
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// SentimentGaps classifies the most frequent negative keywords against the
// remediation table. Matching is case-insensitive substring, first rule wins.
func (o *OpportunityScorer) SentimentGaps(keywords []string) []SentimentGap {
	limit := min(max(o.policy.PrivateLabel.MaxKeywords, 0), len(keywords))

	gaps := make([]SentimentGap, 0, limit)
	for i, keyword := range keywords[:limit] {
		gaps = append(gaps, SentimentGap{
			Keyword:              keyword,
			FrequencyScore:       10.0 - float64(i*2),
			ImprovementPotential: o.remediate(keyword),
		})
	}
	return gaps
}

func (o *OpportunityScorer) remediate(keyword string) string {
	lower := strings.ToLower(keyword)
	for _, rule := range o.policy.Remediation {
		if strings.Contains(lower, strings.ToLower(rule.Match)) {
			return rule.Suggestion
		}
	}
	return o.policy.GenericRemedy
}

// CompetitionLevel buckets the FBA seller count.
func (o *OpportunityScorer) CompetitionLevel(fbaSellers int) RiskLevel {
	pl := o.policy.PrivateLabel
	switch {
	case fbaSellers < pl.CompetitionMedium:
		return RiskLow
	case fbaSellers < pl.CompetitionHigh:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func (o *OpportunityScorer) demandLevel(monthlySales int) string {
	pl := o.policy.PrivateLabel
	switch {
	case monthlySales > pl.DemandHighSales:
		return "high"
	case monthlySales > pl.DemandMediumSales:
		return "medium"
	default:
		return "low"
	}
}

func atLeast(v float64, table []bucket, floor int) int {
	for _, b := range table {
		if v >= b.threshold {
			return b.score
		}
	}
	return floor
}

func atMost(v float64, table []bucket, floor int) int {
	for _, b := range table {
		if v <= b.threshold {
			return b.score
		}
	}
	return floor
}

func below(v float64, table []bucket, floor int) int {
	for _, b := range table {
		if v < b.threshold {
			return b.score
		}
	}
	return floor
}
