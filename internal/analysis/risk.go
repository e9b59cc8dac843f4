package analysis

import (
	"fmt"
	"strings"

	"merchant-verdict/internal/product"
)

// Risk flag texts, in the order they are emitted.
const (
	FlagIPHigh      = "HIGH IP INFRINGEMENT RISK - AVOID"
	FlagIPMedium    = "Moderate IP concern - verify trademark"
	FlagPriceWar    = "PRICE WAR DETECTED - Unstable margins"
	FlagHighReturns = "High return rate - quality concerns"
	flagSeasonalFmt = "Seasonal product: %s"
)

// RiskAssessor builds the defensive profile of a listing.
type RiskAssessor struct {
	policy Policy
}

func NewRiskAssessor(policy Policy) *RiskAssessor {
	return &RiskAssessor{policy: policy}
}

// Assess evaluates a snapshot.
func (r *RiskAssessor) Assess(s *product.Snapshot) RiskProfile {
	return r.assess(resolve(s, r.policy.Defaults))
}

func (r *RiskAssessor) assess(f facts) RiskProfile {
	rp := r.policy.Risk

	ipLevel := IPRiskLevel(f.ipRisk)
	priceWar := f.stability < rp.PriceWarStability
	returns := r.ReturnRisk(f.returnRate)
	seasonal := !strings.EqualFold(f.seasonal, r.policy.Defaults.SeasonalLabel)

	var (
		flags []string
		score int
	)
	switch ipLevel {
	case RiskHigh:
		flags = append(flags, FlagIPHigh)
		score += rp.Points.IPHigh
	case RiskMedium:
		flags = append(flags, FlagIPMedium)
		score += rp.Points.IPMedium
	}
	if priceWar {
		flags = append(flags, FlagPriceWar)
		score += rp.Points.PriceWar
	}
	if returns == RiskHigh {
		flags = append(flags, FlagHighReturns)
		score += rp.Points.HighReturns
	}
	if seasonal {
		flags = append(flags, fmt.Sprintf(flagSeasonalFmt, f.seasonal))
		score += rp.Points.Seasonal
	}
	if score > rp.MaxScore {
		score = rp.MaxScore
	}
	if flags == nil {
		flags = []string{}
	}

	return RiskProfile{
		IPRiskLevel:         ipLevel,
		IPAutoReject:        ipLevel == RiskHigh,
		PriceStabilityScore: f.stability,
		PriceWarDetected:    priceWar,
		ReturnRateRisk:      returns,
		SeasonalRisk:        f.seasonal,
		OverallRiskScore:    score,
		RiskFlags:           flags,
	}
}

// IPRiskLevel maps free-text IP risk onto a level. Only "high" and "medium"
// are recognised; everything else is low.
func IPRiskLevel(text string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "high":
		return RiskHigh
	case "medium":
		return RiskMedium
	default:
		return RiskLow
	}
}

// ReturnRisk buckets an estimated return fraction.
func (r *RiskAssessor) ReturnRisk(rate float64) RiskLevel {
	switch {
	case rate > r.policy.Risk.ReturnRateHigh:
		return RiskHigh
	case rate > r.policy.Risk.ReturnRateMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}
