package analysis

import (
	"strings"
	"testing"
)

func strongProfit() Profitability {
	return Profitability{
		NetProfit:        mustDec("10"),
		ROIPercentage:    mustDec("50"),
		MarginPercentage: mustDec("30"),
		BuyBoxRisk:       RiskLow,
		Velocity:         VelocitySteady,
	}
}

func strongOpportunity() Opportunity {
	return Opportunity{Score: 70, HasImprovementOpportunity: true, CompetitionLevel: RiskLow}
}

func TestVerdictAutoRejectShortCircuits(t *testing.T) {
	v := NewVerdictEngine(DefaultPolicy()).Decide(strongProfit(), strongOpportunity(), RiskProfile{IPAutoReject: true})

	for name, d := range map[string]Decision{
		"arbitrage":     v.Arbitrage,
		"dropshipping":  v.Dropshipping,
		"private label": v.PrivateLabel,
		"overall":       v.Overall,
	} {
		if d != DecisionNoGo {
			t.Errorf("%s = %s, want no_go", name, d)
		}
	}
	if v.RecommendedModel != nil {
		t.Fatalf("rejected item must not recommend a model, got %s", *v.RecommendedModel)
	}
	if !strings.HasPrefix(v.Summary, "REJECTED") {
		t.Fatalf("summary = %q", v.Summary)
	}
}

func TestVerdictAllGo(t *testing.T) {
	v := NewVerdictEngine(DefaultPolicy()).Decide(strongProfit(), strongOpportunity(), RiskProfile{})

	if v.Arbitrage != DecisionGo || v.Dropshipping != DecisionGo || v.PrivateLabel != DecisionGo {
		t.Fatalf("expected go across the board: %+v", v)
	}
	if v.Overall != DecisionGo || v.RecommendedModel == nil || *v.RecommendedModel != StrategyArbitrage {
		t.Fatalf("overall = %s recommended = %v", v.Overall, v.RecommendedModel)
	}
	if v.ArbitrageReason != "Good margins and buy-box access" {
		t.Fatalf("arbitrage reason = %q", v.ArbitrageReason)
	}
	if v.DropshippingReason != "Fast turnover suitable for dropship" {
		t.Fatalf("dropshipping reason = %q", v.DropshippingReason)
	}
	if v.Summary != "APPROVED: Recommended model is arbitrage" {
		t.Fatalf("summary = %q", v.Summary)
	}
}

func TestVerdictSlowVelocityDowngradesDropshipping(t *testing.T) {
	p := strongProfit()
	p.Velocity = VelocitySlow

	v := NewVerdictEngine(DefaultPolicy()).Decide(p, strongOpportunity(), RiskProfile{})
	if v.Arbitrage != DecisionGo || v.Dropshipping != DecisionConditional {
		t.Fatalf("arbitrage = %s dropshipping = %s", v.Arbitrage, v.Dropshipping)
	}
	if v.DropshippingReason != "Slow velocity (capital lock)" {
		t.Fatalf("dropshipping reason = %q", v.DropshippingReason)
	}
	if v.Overall != DecisionGo || *v.RecommendedModel != StrategyArbitrage {
		t.Fatalf("two go strategies must give overall go on arbitrage: %+v", v)
	}
}

func TestVerdictPlatformSellerBlocksArbitrageGo(t *testing.T) {
	p := strongProfit()
	p.PlatformIsSeller = true
	p.BuyBoxRisk = RiskCritical

	v := NewVerdictEngine(DefaultPolicy()).Decide(p, Opportunity{Score: 10}, RiskProfile{})
	if v.Arbitrage != DecisionConditional {
		t.Fatalf("arbitrage = %s, want conditional on profit alone", v.Arbitrage)
	}
	if !strings.Contains(v.ArbitrageReason, "Platform is a seller") || !strings.Contains(v.ArbitrageReason, "Critical buy-box risk") {
		t.Fatalf("reason = %q", v.ArbitrageReason)
	}
	if v.Overall != DecisionConditional || *v.RecommendedModel != StrategyArbitrage {
		t.Fatalf("overall = %s", v.Overall)
	}
}

func TestVerdictConditionalArbitrage(t *testing.T) {
	p := Profitability{
		NetProfit:        mustDec("4"),
		ROIPercentage:    mustDec("10"),
		MarginPercentage: mustDec("12"),
		BuyBoxRisk:       RiskLow,
		Velocity:         VelocitySteady,
	}
	v := NewVerdictEngine(DefaultPolicy()).Decide(p, Opportunity{Score: 30}, RiskProfile{RiskFlags: []string{"x"}})

	if v.Arbitrage != DecisionConditional || v.Dropshipping != DecisionConditional || v.PrivateLabel != DecisionNoGo {
		t.Fatalf("verdicts = %s/%s/%s", v.Arbitrage, v.Dropshipping, v.PrivateLabel)
	}
	for _, part := range []string{"Net profit below $5.00 (4.00)", "Low ROI (10.0%)", "Thin margin (12.0%)"} {
		if !strings.Contains(v.ArbitrageReason, part) {
			t.Errorf("reason %q missing %q", v.ArbitrageReason, part)
		}
	}
	if v.Overall != DecisionConditional || *v.RecommendedModel != StrategyArbitrage {
		t.Fatalf("overall = %s", v.Overall)
	}
	if v.Summary != "CONDITIONAL: Proceed with caution, consider arbitrage | Flags: 1" {
		t.Fatalf("summary = %q", v.Summary)
	}
}

func TestVerdictOnlyPrivateLabel(t *testing.T) {
	p := Profitability{NetProfit: mustDec("1"), BuyBoxRisk: RiskLow, Velocity: VelocitySprinter}
	v := NewVerdictEngine(DefaultPolicy()).Decide(p, strongOpportunity(), RiskProfile{})

	if v.Arbitrage != DecisionNoGo || v.Dropshipping != DecisionNoGo || v.PrivateLabel != DecisionGo {
		t.Fatalf("verdicts = %s/%s/%s", v.Arbitrage, v.Dropshipping, v.PrivateLabel)
	}
	if v.Overall != DecisionConditional || *v.RecommendedModel != StrategyPrivateLabel {
		t.Fatalf("overall = %s recommended = %v", v.Overall, v.RecommendedModel)
	}
	if v.PrivateLabelReason != "Strong opportunity (score: 70/100)" {
		t.Fatalf("pl reason = %q", v.PrivateLabelReason)
	}
}

func TestVerdictPriceWarBlocksPrivateLabel(t *testing.T) {
	v := NewVerdictEngine(DefaultPolicy()).Decide(Profitability{}, strongOpportunity(), RiskProfile{PriceWarDetected: true})
	if v.PrivateLabel != DecisionConditional {
		t.Fatalf("private label = %s", v.PrivateLabel)
	}
	if v.PrivateLabelReason != "Active price war" {
		t.Fatalf("pl reason = %q", v.PrivateLabelReason)
	}
}

func TestVerdictNothingQualifies(t *testing.T) {
	o := Opportunity{Score: 20, CompetitionLevel: RiskHigh}
	v := NewVerdictEngine(DefaultPolicy()).Decide(Profitability{}, o, RiskProfile{RiskFlags: []string{"a", "b"}})

	if v.Overall != DecisionNoGo || v.RecommendedModel != nil {
		t.Fatalf("overall = %s", v.Overall)
	}
	if v.Summary != "NOT RECOMMENDED: Risk factors outweigh potential | Flags: 2" {
		t.Fatalf("summary = %q", v.Summary)
	}
	if v.PrivateLabelReason != "PL score too low (20/100); No clear improvement gap; High competition" {
		t.Fatalf("pl reason = %q", v.PrivateLabelReason)
	}
}
