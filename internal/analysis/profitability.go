package analysis

import (
	"github.com/shopspring/decimal"

	"merchant-verdict/internal/product"
)

// cubicCMPerFoot converts cm³ to ft³.
var cubicCMPerFoot = decimal.RequireFromString("28316.8")

// ProfitabilityCalculator derives landed cost, fees, and margin for a reseller.
//
// Missing buy-box and fee fields resolve to zero so a number is always shown.
// With incomplete data this can overstate the margin; the report's data quality
// score is what flags that downstream.
type ProfitabilityCalculator struct {
	policy Policy
}

// NewProfitabilityCalculator builds a calculator bound to a policy table.
func NewProfitabilityCalculator(policy Policy) *ProfitabilityCalculator {
	return &ProfitabilityCalculator{policy: policy}
}

// Calculate evaluates a snapshot.
func (c *ProfitabilityCalculator) Calculate(s *product.Snapshot) Profitability {
	return c.calculate(resolve(s, c.policy.Defaults))
}

func (c *ProfitabilityCalculator) calculate(f facts) Profitability {
	places := c.policy.RoundingPlaces

	// overhead keeps full precision; only the derived figures are rounded
	fulfillment := c.FulfillmentCost(f.weightGrams, f.dims)
	overhead := f.buyBox.Mul(dec(c.policy.Fees.OverheadPct))
	netProfit := f.buyBox.Sub(f.referralFee).Sub(fulfillment).Sub(overhead)
	invested := f.referralFee.Add(fulfillment).Add(overhead)

	result := Profitability{
		BuyBoxPrice:           f.buyBox,
		ReferralFee:           f.referralFee,
		FulfillmentCost:       fulfillment,
		OverheadCost:          overhead,
		NetProfit:             netProfit.Round(places),
		ROIPercentage:         percentOf(netProfit, invested).Round(places),
		MarginPercentage:      percentOf(netProfit, f.buyBox).Round(places),
		BuyBoxRisk:            c.BuyBoxRisk(f.platformIsSeller, f.fbaSellers, f.totalOffers),
		PlatformIsSeller:      f.platformIsSeller,
		FBASellerCount:        f.fbaSellers,
		TotalOfferCount:       f.totalOffers,
		Velocity:              c.Velocity(f.rankChange, f.monthlySales),
		RankTrend:             rankTrend(f.rankChange),
		EstimatedMonthlySales: f.monthlySales,
		CapitalTurnoverDays:   c.TurnoverDays(f.monthlySales),
	}
	return result
}

// FulfillmentCost is base + weight term + volumetric storage term, rounded.
// Without complete dimensions the fixed storage default applies instead of zero.
func (c *ProfitabilityCalculator) FulfillmentCost(weightGrams float64, dims *product.Dimensions) decimal.Decimal {
	fees := c.policy.Fees
	weightCost := dec(weightGrams).Div(decimal.NewFromInt(1000)).Mul(dec(fees.WeightRatePerKg))

	storage := dec(fees.DefaultStorageCost)
	if dims.Complete() {
		volume := dec(dims.Length.Value).Mul(dec(dims.Width.Value)).Mul(dec(dims.Height.Value))
		storage = volume.Div(cubicCMPerFoot).Mul(dec(fees.StoragePerCubicFoot))
	}

	return dec(fees.FulfillmentBase).Add(weightCost).Add(storage).Round(c.policy.RoundingPlaces)
}

// BuyBoxRisk applies the fixed rule order; the first match wins.
func (c *ProfitabilityCalculator) BuyBoxRisk(platformIsSeller bool, fbaSellers, totalOffers int) RiskLevel {
	bb := c.policy.BuyBox
	switch {
	case platformIsSeller:
		return RiskCritical
	case fbaSellers > bb.HighSellerCount:
		return RiskHigh
	case fbaSellers > bb.MediumSellerCount || totalOffers > bb.MediumOfferCount:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Velocity grades demand: sprinter first, then steady, else slow.
func (c *ProfitabilityCalculator) Velocity(rankChangePct float64, monthlySales int) VelocityGrade {
	v := c.policy.Velocity
	if rankChangePct <= v.Sprinter.MaxRankChangePct && monthlySales >= v.Sprinter.MinMonthlySales {
		return VelocitySprinter
	}
	if rankChangePct <= v.Steady.MaxRankChangePct && monthlySales >= v.Steady.MinMonthlySales {
		return VelocitySteady
	}
	return VelocitySlow
}

// TurnoverDays estimates days to sell through. Nil when there is no sales estimate;
// below the volume floor it is clamped to the slow day count.
func (c *ProfitabilityCalculator) TurnoverDays(monthlySales int) *int {
	if monthlySales <= 0 {
		return nil
	}
	t := c.policy.Turnover
	days := t.SlowDays
	if monthlySales >= t.VolumeFloor {
		days = t.WindowDays * t.VolumeFloor / monthlySales
	}
	return &days
}

func rankTrend(change float64) string {
	switch {
	case change < 0:
		return "improving"
	case change > 0:
		return "declining"
	default:
		return "stable"
	}
}
