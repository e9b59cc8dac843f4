package analysis

import (
	"reflect"
	"testing"

	"merchant-verdict/internal/product"
)

func TestRiskFlagsGolden(t *testing.T) {
	s := baseSnapshot()
	s.Risk.IPInfringementRisk = " HIGH "
	s.Pricing.PriceStabilityScore = product.Float(0.3)
	s.Risk.ReturnRateEstimated = product.Float(0.2)
	s.Risk.SeasonalFactor = "Q4 holiday"

	assessor := NewRiskAssessor(DefaultPolicy())
	first := assessor.Assess(s)
	second := assessor.Assess(s)

	want := []string{
		"HIGH IP INFRINGEMENT RISK - AVOID",
		"PRICE WAR DETECTED - Unstable margins",
		"High return rate - quality concerns",
		"Seasonal product: Q4 holiday",
	}
	if !reflect.DeepEqual(first.RiskFlags, want) {
		t.Fatalf("flags = %q, want %q", first.RiskFlags, want)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input must give identical profile")
	}
	if first.OverallRiskScore != 95 {
		t.Fatalf("score = %d, want 95", first.OverallRiskScore)
	}
	if !first.IPAutoReject || first.IPRiskLevel != RiskHigh {
		t.Fatalf("high IP must auto-reject: %+v", first)
	}
}

func TestRiskScoreCapped(t *testing.T) {
	policy := DefaultPolicy()
	policy.Risk.Points.IPHigh = 90
	s := baseSnapshot()
	s.Risk.IPInfringementRisk = "high"
	s.Pricing.PriceStabilityScore = product.Float(0.1)

	if got := NewRiskAssessor(policy).Assess(s).OverallRiskScore; got != 100 {
		t.Fatalf("score = %d, want capped at 100", got)
	}
}

func TestRiskDefaultsAreQuiet(t *testing.T) {
	got := NewRiskAssessor(DefaultPolicy()).Assess(baseSnapshot())

	if got.IPRiskLevel != RiskLow || got.IPAutoReject {
		t.Fatalf("missing IP risk must be low: %+v", got)
	}
	if got.PriceStabilityScore != 1.0 || got.PriceWarDetected {
		t.Fatalf("missing stability must default to stable: %+v", got)
	}
	if got.SeasonalRisk != "non-seasonal" {
		t.Fatalf("seasonal = %q", got.SeasonalRisk)
	}
	if got.RiskFlags == nil || len(got.RiskFlags) != 0 || got.OverallRiskScore != 0 {
		t.Fatalf("expected no flags, got %q (%d)", got.RiskFlags, got.OverallRiskScore)
	}
}

func TestRiskMediumSignals(t *testing.T) {
	s := baseSnapshot()
	s.Risk.IPInfringementRisk = "Medium"
	s.Risk.ReturnRateEstimated = product.Float(0.07)
	s.Risk.SeasonalFactor = "Non-Seasonal"

	got := NewRiskAssessor(DefaultPolicy()).Assess(s)
	if got.IPRiskLevel != RiskMedium || got.IPAutoReject {
		t.Fatalf("ip = %s", got.IPRiskLevel)
	}
	if got.ReturnRateRisk != RiskMedium {
		t.Fatalf("returns = %s", got.ReturnRateRisk)
	}
	if !reflect.DeepEqual(got.RiskFlags, []string{FlagIPMedium}) || got.OverallRiskScore != 15 {
		t.Fatalf("flags = %q score = %d", got.RiskFlags, got.OverallRiskScore)
	}
}

func TestPresentZeroStabilityIsPriceWar(t *testing.T) {
	s := baseSnapshot()
	s.Pricing.PriceStabilityScore = product.Float(0)
	if !NewRiskAssessor(DefaultPolicy()).Assess(s).PriceWarDetected {
		t.Fatal("a reported stability of 0 is a price war")
	}
}

func TestIPRiskLevelUnknownText(t *testing.T) {
	for _, text := range []string{"", "unknown", "very high", "hi"} {
		if got := IPRiskLevel(text); got != RiskLow {
			t.Errorf("IPRiskLevel(%q) = %s, want low", text, got)
		}
	}
}
