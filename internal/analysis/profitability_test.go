package analysis

import (
	"testing"

	"merchant-verdict/internal/product"
)

func TestProfitabilityReferenceScenario(t *testing.T) {
	got := NewProfitabilityCalculator(DefaultPolicy()).Calculate(baseSnapshot())

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"fulfillment", got.FulfillmentCost.StringFixed(2), "3.50"},
		{"overhead", got.OverheadCost.String(), "4.4985"},
		{"net", got.NetProfit.StringFixed(2), "17.49"},
		{"roi", got.ROIPercentage.StringFixed(2), "139.95"},
		{"margin", got.MarginPercentage.StringFixed(2), "58.32"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	if got.BuyBoxRisk != RiskLow {
		t.Errorf("buy-box risk = %s, want low", got.BuyBoxRisk)
	}
	if got.Velocity != VelocitySlow {
		t.Errorf("velocity = %s, want slow without sales", got.Velocity)
	}
	if got.CapitalTurnoverDays != nil {
		t.Errorf("turnover must be nil without a sales estimate, got %d", *got.CapitalTurnoverDays)
	}
	if got.RankTrend != "stable" {
		t.Errorf("trend = %s", got.RankTrend)
	}
}

func TestProfitabilityNetReconciles(t *testing.T) {
	got := NewProfitabilityCalculator(DefaultPolicy()).Calculate(baseSnapshot())
	sum := got.BuyBoxPrice.Sub(got.ReferralFee).Sub(got.FulfillmentCost).Sub(got.OverheadCost)
	if !sum.Equal(got.NetProfit) {
		t.Fatalf("net %s does not reconcile with components %s", got.NetProfit, sum)
	}
}

func TestFulfillmentUsesDimensionsWhenComplete(t *testing.T) {
	c := NewProfitabilityCalculator(DefaultPolicy())
	dims := &product.Dimensions{
		Length: product.Float(30),
		Width:  product.Float(20),
		Height: product.Float(10),
	}
	if got := c.FulfillmentCost(1000, dims).StringFixed(2); got != "3.66" {
		t.Fatalf("fulfillment with dims = %s, want 3.66", got)
	}

	partial := &product.Dimensions{Length: product.Float(30), Width: product.Float(20)}
	if got := c.FulfillmentCost(1000, partial).StringFixed(2); got != "3.75" {
		t.Fatalf("partial dims must use storage default, got %s", got)
	}
}

func TestProfitabilityZeroDenominators(t *testing.T) {
	policy := DefaultPolicy()
	policy.Fees.FulfillmentBase = 0
	policy.Fees.WeightRatePerKg = 0
	policy.Fees.DefaultStorageCost = 0

	s := baseSnapshot()
	s.Pricing.BuyBoxPrice.Valid = false
	s.Pricing.ReferralFeeEstimate.Valid = false

	got := NewProfitabilityCalculator(policy).Calculate(s)
	if !got.ROIPercentage.IsZero() || !got.MarginPercentage.IsZero() {
		t.Fatalf("zero denominators must give zero ratios, got roi=%s margin=%s", got.ROIPercentage, got.MarginPercentage)
	}
}

func TestProfitabilityMissingPriceShowsLoss(t *testing.T) {
	s := baseSnapshot()
	s.Pricing.BuyBoxPrice.Valid = false
	s.Pricing.ReferralFeeEstimate.Valid = false

	got := NewProfitabilityCalculator(DefaultPolicy()).Calculate(s)
	if got.NetProfit.StringFixed(2) != "-3.50" {
		t.Fatalf("net = %s, want -3.50", got.NetProfit)
	}
	if !got.MarginPercentage.IsZero() {
		t.Fatalf("margin with zero buy-box = %s", got.MarginPercentage)
	}
	if got.ROIPercentage.StringFixed(2) != "-100.00" {
		t.Fatalf("roi = %s, want -100.00", got.ROIPercentage)
	}
}

func TestBuyBoxRisk(t *testing.T) {
	c := NewProfitabilityCalculator(DefaultPolicy())
	cases := []struct {
		name     string
		platform bool
		sellers  int
		offers   int
		want     RiskLevel
	}{
		{"platform dominates", true, 0, 0, RiskCritical},
		{"platform over crowded", true, 50, 99, RiskCritical},
		{"many sellers", false, 11, 0, RiskHigh},
		{"ten sellers is medium", false, 10, 0, RiskMedium},
		{"many offers", false, 2, 16, RiskMedium},
		{"boundary", false, 5, 15, RiskLow},
		{"quiet", false, 1, 1, RiskLow},
	}
	for _, tc := range cases {
		if got := c.BuyBoxRisk(tc.platform, tc.sellers, tc.offers); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestVelocityGrades(t *testing.T) {
	c := NewProfitabilityCalculator(DefaultPolicy())
	cases := []struct {
		change float64
		sales  int
		want   VelocityGrade
	}{
		{-15, 600, VelocitySprinter},
		{-10, 500, VelocitySprinter},
		{-5, 600, VelocitySteady},
		{0, 200, VelocitySteady},
		{5, 1000, VelocitySlow},
		{-20, 100, VelocitySlow},
	}
	for _, tc := range cases {
		if got := c.Velocity(tc.change, tc.sales); got != tc.want {
			t.Errorf("Velocity(%v, %d) = %s, want %s", tc.change, tc.sales, got, tc.want)
		}
	}
}

func TestTurnoverDays(t *testing.T) {
	c := NewProfitabilityCalculator(DefaultPolicy())
	if c.TurnoverDays(0) != nil {
		t.Fatal("no sales must give nil turnover")
	}
	cases := map[int]int{50: 90, 99: 90, 100: 30, 300: 10, 3000: 1}
	for sales, want := range cases {
		got := c.TurnoverDays(sales)
		if got == nil || *got != want {
			t.Errorf("TurnoverDays(%d) = %v, want %d", sales, got, want)
		}
	}
}
