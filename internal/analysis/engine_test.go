package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"merchant-verdict/internal/product"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultPolicy(), noopLogger())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEngineAnalyzeReferenceScenario(t *testing.T) {
	s := flimsySnapshot()
	s.Identification.ASIN = " b000test01 "
	s.DataQualityScore = product.Float(0.85)

	report, err := newTestEngine(t).Analyze(context.Background(), s)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if report.ASIN != "B000TEST01" || report.Title != "Insulated Bottle" || report.Category != "Kitchen" {
		t.Fatalf("identity not carried: %+v", report)
	}
	if s.Identification.ASIN != " b000test01 " {
		t.Fatal("input snapshot was modified")
	}
	if report.DataQualityScore != 0.85 {
		t.Fatalf("quality = %v", report.DataQualityScore)
	}
	if !report.AnalyzedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %s", report.AnalyzedAt)
	}
	if report.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("report id not assigned")
	}
	if report.Profitability.NetProfit.StringFixed(2) != "17.49" {
		t.Fatalf("net = %s", report.Profitability.NetProfit)
	}
	if report.Opportunity.Score != 77 || !report.Opportunity.HasImprovementOpportunity {
		t.Fatalf("opportunity = %+v", report.Opportunity)
	}
	// sprinter needs an improving rank; flat rank with 800 sales is steady
	if report.Profitability.Velocity != VelocitySteady {
		t.Fatalf("velocity = %s", report.Profitability.Velocity)
	}
	if report.Verdict.Overall != DecisionGo || *report.Verdict.RecommendedModel != StrategyArbitrage {
		t.Fatalf("verdict = %+v", report.Verdict)
	}
}

func TestEngineAutoRejectAcrossBoard(t *testing.T) {
	s := flimsySnapshot()
	s.Risk.IPInfringementRisk = "High"

	report, err := newTestEngine(t).Analyze(context.Background(), s)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Verdict.Overall != DecisionNoGo || report.Verdict.Arbitrage != DecisionNoGo {
		t.Fatalf("verdict = %+v", report.Verdict)
	}
}

func TestEngineRejectsContractViolations(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Analyze(context.Background(), nil); !errors.Is(err, product.ErrNilSnapshot) {
		t.Fatalf("nil snapshot: %v", err)
	}
	s := baseSnapshot()
	s.Identification.ASIN = "  "
	if _, err := e.Analyze(context.Background(), s); !errors.Is(err, product.ErrMissingASIN) {
		t.Fatalf("missing asin: %v", err)
	}
}

func TestEngineHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestEngine(t).Analyze(ctx, baseSnapshot()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.PrivateLabel.Weights.Velocity = 0.5
	if _, err := NewEngine(policy, noopLogger()); err == nil {
		t.Fatal("weights not summing to 1 must be rejected")
	}
}

func TestNewEngineRejectsNegativeKeywordLimit(t *testing.T) {
	policy := DefaultPolicy()
	policy.PrivateLabel.MaxKeywords = -1
	if _, err := NewEngine(policy, noopLogger()); err == nil {
		t.Fatal("negative max_keywords must be rejected")
	}

	policy = DefaultPolicy()
	policy.Fees.OverheadPct = math.NaN()
	if _, err := NewEngine(policy, noopLogger()); err == nil {
		t.Fatal("NaN overhead must be rejected")
	}
}

func TestEngineTreatsNonFiniteNumbersAsAbsent(t *testing.T) {
	raw := `{
		"identification": {"asin": "B000TEST01"},
		"pricing_mechanics": {"buy_box_price": 29.99, "amazon_referral_fee_est": 4.50, "price_stability_score": "NaN"},
		"logistics_and_physical": {
			"package_weight_grams": "NaN",
			"dimensions_cm": {"length": "Infinity", "width": 10, "height": 10}
		},
		"sentiment_and_quality": {"rating_overall": "-Inf"},
		"risk_assessment": {"return_rate_estimated": "NaN"}
	}`
	var s product.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}

	report, err := newTestEngine(t).Analyze(context.Background(), &s)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	want := NewProfitabilityCalculator(DefaultPolicy()).Calculate(baseSnapshot())
	if !report.Profitability.FulfillmentCost.Equal(want.FulfillmentCost) ||
		!report.Profitability.NetProfit.Equal(want.NetProfit) {
		t.Fatalf("fulfillment %s net %s, want defaults %s %s",
			report.Profitability.FulfillmentCost, report.Profitability.NetProfit, want.FulfillmentCost, want.NetProfit)
	}

	// values set in code fall back the same way
	built := baseSnapshot()
	built.Logistics.PackageWeightGrams = product.Float(math.Inf(1))
	built.Pricing.PriceStabilityScore = product.Float(math.NaN())
	report, err = newTestEngine(t).Analyze(context.Background(), built)
	if err != nil {
		t.Fatalf("analyze built snapshot: %v", err)
	}
	if !report.Profitability.NetProfit.Equal(want.NetProfit) || report.Risk.PriceWarDetected {
		t.Fatalf("net %s price war %v", report.Profitability.NetProfit, report.Risk.PriceWarDetected)
	}
}

func TestReportJSONShape(t *testing.T) {
	report, err := newTestEngine(t).Analyze(context.Background(), baseSnapshot())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"asin", "arbitrage_analysis", "private_label_analysis", "risk_analysis", "verdict", "data_quality_score", "analysis_timestamp"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}

	var verdict struct {
		Overall     string  `json:"overall_verdict"`
		Recommended *string `json:"recommended_model"`
	}
	if err := json.Unmarshal(doc["verdict"], &verdict); err != nil {
		t.Fatalf("verdict: %v", err)
	}
	if verdict.Overall != "conditional" && verdict.Overall != "go" && verdict.Overall != "no_go" {
		t.Fatalf("unexpected verdict value %q", verdict.Overall)
	}

	var arb struct {
		BuyBoxRisk string `json:"buybox_risk_level"`
		Velocity   string `json:"velocity_grade"`
		Net        string `json:"net_profit"`
	}
	if err := json.Unmarshal(doc["arbitrage_analysis"], &arb); err != nil {
		t.Fatalf("arbitrage_analysis: %v", err)
	}
	if arb.BuyBoxRisk != "low" || arb.Velocity != "slow" || arb.Net != "17.49" {
		t.Fatalf("arbitrage_analysis = %+v", arb)
	}
}
