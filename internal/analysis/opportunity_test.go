package analysis

import (
	"testing"

	"merchant-verdict/internal/product"
)

func TestOpportunityFlimsyScenario(t *testing.T) {
	got := NewOpportunityScorer(DefaultPolicy()).Score(flimsySnapshot())

	if !got.HasImprovementOpportunity {
		t.Fatal("expected an improvement opportunity")
	}
	if len(got.SentimentGaps) != 1 {
		t.Fatalf("gaps = %+v", got.SentimentGaps)
	}
	gap := got.SentimentGaps[0]
	if gap.Keyword != "flimsy" || gap.ImprovementPotential != "Strengthen construction, use better materials" {
		t.Fatalf("unexpected gap %+v", gap)
	}
	if gap.FrequencyScore != 10 {
		t.Fatalf("first keyword frequency = %v, want 10", gap.FrequencyScore)
	}

	want := ScoreBreakdown{Velocity: 80, RatingGap: 100, Competition: 100, ReviewMomentum: 15}
	if got.Breakdown != want {
		t.Fatalf("breakdown = %+v, want %+v", got.Breakdown, want)
	}
	if got.Score != 77 {
		t.Fatalf("score = %d, want 77", got.Score)
	}
	if got.DemandSignals.DemandLevel != "high" {
		t.Fatalf("demand = %s", got.DemandSignals.DemandLevel)
	}
	if got.CompetitionLevel != RiskLow {
		t.Fatalf("competition = %s", got.CompetitionLevel)
	}
}

func TestOpportunityImprovementFlagIsConjunctive(t *testing.T) {
	scorer := NewOpportunityScorer(DefaultPolicy())

	tooPopular := flimsySnapshot()
	tooPopular.Sales.BestSellerRank = product.Int(6000)

	wellRated := flimsySnapshot()
	wellRated.Sentiment.RatingOverall = product.Float(4.6)

	noComplaints := flimsySnapshot()
	noComplaints.Sentiment.NegativeKeywords = nil

	missingRank := flimsySnapshot()
	missingRank.Sales.BestSellerRank = product.OptInt{}

	for name, s := range map[string]*product.Snapshot{
		"rank above ceiling": tooPopular,
		"rating too high":    wellRated,
		"no keywords":        noComplaints,
		"rank missing":       missingRank,
	} {
		if scorer.Score(s).HasImprovementOpportunity {
			t.Errorf("%s: flag must be false", name)
		}
	}
}

func TestSentimentGapsFirstMatchWins(t *testing.T) {
	scorer := NewOpportunityScorer(DefaultPolicy())
	gaps := scorer.SentimentGaps([]string{"Cheap PLASTIC lid", "too small", "weird smell", "leaky", "broke fast", "overflow"})

	if len(gaps) != 5 {
		t.Fatalf("expected top 5 keywords, got %d", len(gaps))
	}
	want := []struct {
		remedy string
		freq   float64
	}{
		{"Use premium materials (metal, glass, BPA-free)", 10},
		{"Offer larger capacity variant", 8},
		{"Address customer pain point", 6},
		{"Improve sealing mechanism", 4},
		{"Address customer pain point", 2},
	}
	for i, w := range want {
		if gaps[i].ImprovementPotential != w.remedy || gaps[i].FrequencyScore != w.freq {
			t.Errorf("gap %d = %+v, want %q at %v", i, gaps[i], w.remedy, w.freq)
		}
	}
}

func TestSentimentGapsUseConfiguredRules(t *testing.T) {
	policy := DefaultPolicy()
	policy.Remediation = []RemediationRule{{Match: "zipper", Suggestion: "Use YKK zippers"}}
	policy.GenericRemedy = "Investigate"

	gaps := NewOpportunityScorer(policy).SentimentGaps([]string{"Zipper broke", "flimsy"})
	if gaps[0].ImprovementPotential != "Use YKK zippers" || gaps[1].ImprovementPotential != "Investigate" {
		t.Fatalf("configured rules not applied: %+v", gaps)
	}
}

func TestTargetCOGSFallsBackToBuyBox(t *testing.T) {
	scorer := NewOpportunityScorer(DefaultPolicy())

	s := baseSnapshot()
	s.Pricing.BuyBoxPrice = money("30")
	s.Pricing.ListPrice = money("40")
	got := scorer.Score(s)
	if got.TargetCOGS.StringFixed(2) != "10.00" {
		t.Fatalf("target cogs = %s, want 10.00", got.TargetCOGS)
	}
	if got.ProjectedProfit.StringFixed(2) != "15.50" || got.ProjectedMarginPct.StringFixed(2) != "51.67" {
		t.Fatalf("projection = %s / %s%%", got.ProjectedProfit, got.ProjectedMarginPct)
	}

	s.Pricing.ListPrice = money("0")
	if got := scorer.Score(s).TargetCOGS.StringFixed(2); got != "7.50" {
		t.Fatalf("zero list price must fall back to buy-box, got %s", got)
	}
}

func TestCompositeScoreClamps(t *testing.T) {
	full := ScoreBreakdown{Velocity: 100, RatingGap: 100, Competition: 100, ReviewMomentum: 100}
	if got := CompositeScore(full, ScoreWeights{1, 1, 1, 1}); got != 100 {
		t.Fatalf("score above 100 not capped: %d", got)
	}
	if got := CompositeScore(full, ScoreWeights{-1, 0, 0, 0}); got != 0 {
		t.Fatalf("negative score not floored: %d", got)
	}
	if got := CompositeScore(full, DefaultPolicy().PrivateLabel.Weights); got != 100 {
		t.Fatalf("all-max breakdown = %d, want 100", got)
	}
}

func TestCompetitionLevel(t *testing.T) {
	scorer := NewOpportunityScorer(DefaultPolicy())
	cases := map[int]RiskLevel{0: RiskLow, 2: RiskLow, 3: RiskMedium, 7: RiskMedium, 8: RiskHigh, 40: RiskHigh}
	for sellers, want := range cases {
		if got := scorer.CompetitionLevel(sellers); got != want {
			t.Errorf("CompetitionLevel(%d) = %s, want %s", sellers, got, want)
		}
	}
}
