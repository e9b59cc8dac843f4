package analysis

import (
	"fmt"
	"strings"
)

const (
	autoRejectReason   = "High IP infringement risk - immediate avoidance recommended"
	autoRejectPLReason = "High IP infringement risk - cannot create variant"
	autoRejectSummary  = "REJECTED: High IP/Trademark risk. Do not proceed with any model."
)

// VerdictEngine turns the three assessments into per-strategy decisions.
// Each call is evaluated from scratch; nothing carries over between calls.
type VerdictEngine struct {
	policy Policy
}

func NewVerdictEngine(policy Policy) *VerdictEngine {
	return &VerdictEngine{policy: policy}
}

// Decide produces the verdict. A high IP risk short-circuits every strategy to no_go
// before profitability or opportunity are looked at.
func (v *VerdictEngine) Decide(p Profitability, o Opportunity, r RiskProfile) Verdict {
	if r.IPAutoReject {
		return Verdict{
			Arbitrage:          DecisionNoGo,
			ArbitrageReason:    autoRejectReason,
			Dropshipping:       DecisionNoGo,
			DropshippingReason: autoRejectReason,
			PrivateLabel:       DecisionNoGo,
			PrivateLabelReason: autoRejectPLReason,
			Overall:            DecisionNoGo,
			Summary:            autoRejectSummary,
		}
	}

	arb, arbReason := v.arbitrage(p)
	drop, dropReason := v.dropshipping(arb, p)
	pl, plReason := v.privateLabel(o, r)

	overall, recommended := overallDecision(arb, drop, pl)

	return Verdict{
		Arbitrage:          arb,
		ArbitrageReason:    arbReason,
		Dropshipping:       drop,
		DropshippingReason: dropReason,
		PrivateLabel:       pl,
		PrivateLabelReason: plReason,
		RecommendedModel:   recommended,
		Overall:            overall,
		Summary:            summarize(overall, recommended, len(r.RiskFlags)),
	}
}

func (v *VerdictEngine) arbitrage(p Profitability) (Decision, string) {
	vp := v.policy.Verdict

	var failed []string
	if !p.NetProfit.GreaterThan(dec(vp.ArbitrageMinProfit)) {
		failed = append(failed, fmt.Sprintf("Net profit below $%.2f (%s)", vp.ArbitrageMinProfit, p.NetProfit.StringFixed(2)))
	}
	if !p.ROIPercentage.GreaterThan(dec(vp.ArbitrageMinROIPct)) {
		failed = append(failed, fmt.Sprintf("Low ROI (%s%%)", p.ROIPercentage.StringFixed(1)))
	}
	if !p.MarginPercentage.GreaterThan(dec(vp.ArbitrageMinMarginPct)) {
		failed = append(failed, fmt.Sprintf("Thin margin (%s%%)", p.MarginPercentage.StringFixed(1)))
	}
	if p.PlatformIsSeller {
		failed = append(failed, "Platform is a seller (high competition)")
	}
	if p.BuyBoxRisk == RiskCritical {
		failed = append(failed, "Critical buy-box risk")
	}

	switch {
	case len(failed) == 0:
		return DecisionGo, "Good margins and buy-box access"
	case p.NetProfit.GreaterThan(dec(vp.ArbitrageConditionalMinProfit)):
		return DecisionConditional, strings.Join(failed, "; ")
	default:
		return DecisionNoGo, strings.Join(failed, "; ")
	}
}

func (v *VerdictEngine) dropshipping(arb Decision, p Profitability) (Decision, string) {
	if arb == DecisionGo && p.Velocity != VelocitySlow {
		return DecisionGo, "Fast turnover suitable for dropship"
	}

	var failed []string
	if arb != DecisionGo {
		failed = append(failed, "Arbitrage economics not met")
	}
	if p.Velocity == VelocitySlow {
		failed = append(failed, "Slow velocity (capital lock)")
	}
	reason := strings.Join(failed, "; ")

	if arb == DecisionNoGo {
		return DecisionNoGo, reason
	}
	return DecisionConditional, reason
}

func (v *VerdictEngine) privateLabel(o Opportunity, r RiskProfile) (Decision, string) {
	vp := v.policy.Verdict

	var failed []string
	if o.Score < vp.PrivateLabelMinScore {
		failed = append(failed, fmt.Sprintf("PL score too low (%d/100)", o.Score))
	}
	if !o.HasImprovementOpportunity {
		failed = append(failed, "No clear improvement gap")
	}
	if o.CompetitionLevel == RiskHigh {
		failed = append(failed, "High competition")
	}
	if r.PriceWarDetected {
		failed = append(failed, "Active price war")
	}

	switch {
	case len(failed) == 0:
		return DecisionGo, fmt.Sprintf("Strong opportunity (score: %d/100)", o.Score)
	case o.Score >= vp.PrivateLabelConditionalScore:
		return DecisionConditional, strings.Join(failed, "; ")
	default:
		return DecisionNoGo, strings.Join(failed, "; ")
	}
}

// overallDecision counts strategies at go. Arbitrage is preferred as the
// recommendation whenever it is eligible.
func overallDecision(arb, drop, pl Decision) (Decision, *Strategy) {
	goCount := 0
	for _, d := range []Decision{arb, drop, pl} {
		if d == DecisionGo {
			goCount++
		}
	}

	switch {
	case goCount >= 2:
		if arb == DecisionGo {
			return DecisionGo, strategyPtr(StrategyArbitrage)
		}
		return DecisionGo, strategyPtr(StrategyPrivateLabel)
	case goCount == 1 || arb == DecisionConditional:
		switch {
		case arb != DecisionNoGo:
			return DecisionConditional, strategyPtr(StrategyArbitrage)
		case pl != DecisionNoGo:
			return DecisionConditional, strategyPtr(StrategyPrivateLabel)
		default:
			return DecisionConditional, nil
		}
	default:
		return DecisionNoGo, nil
	}
}

func summarize(overall Decision, recommended *Strategy, flagCount int) string {
	var summary string
	switch overall {
	case DecisionGo:
		summary = fmt.Sprintf("APPROVED: Recommended model is %s", *recommended)
	case DecisionConditional:
		if recommended != nil {
			summary = fmt.Sprintf("CONDITIONAL: Proceed with caution, consider %s", *recommended)
		} else {
			summary = "CONDITIONAL: Proceed with caution"
		}
	default:
		summary = "NOT RECOMMENDED: Risk factors outweigh potential"
	}
	if flagCount > 0 {
		summary += fmt.Sprintf(" | Flags: %d", flagCount)
	}
	return summary
}

func strategyPtr(s Strategy) *Strategy {
	return &s
}
