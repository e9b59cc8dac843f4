package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"merchant-verdict/internal/product"
)

// ErrMixedASINs is returned when a cross-market batch covers more than one item.
var ErrMixedASINs = errors.New("analysis: snapshots describe different items")

// ArbitrageFinder compares one item's buy-box across marketplaces.
type ArbitrageFinder struct {
	policy Policy
	logger zerolog.Logger
}

// NewArbitrageFinder builds a finder bound to the policy's rate table.
func NewArbitrageFinder(policy Policy, logger zerolog.Logger) *ArbitrageFinder {
	return &ArbitrageFinder{
		policy: policy,
		logger: logger.With().Str("component", "arbitrage").Logger(),
	}
}

// Find converts every buy-box to the reference currency and picks the cheapest
// marketplace to buy in and the dearest to sell in. Fewer than two priced
// snapshots is a normal insufficient_data outcome. Repeated marketplaces
// collapse to their latest capture; when only one marketplace remains the
// outcome is no_opportunity. The result does not depend on the order of the
// input.
func (a *ArbitrageFinder) Find(snapshots []*product.Snapshot) (ArbitrageResult, error) {
	asin, title, err := batchIdentity(snapshots)
	if err != nil {
		return ArbitrageResult{}, err
	}

	result := ArbitrageResult{ASIN: asin, Prices: []MarketPrice{}}
	places := a.policy.RoundingPlaces
	// one price per marketplace: the latest capture wins
	kept := make(map[string]int)
	captured := make(map[string]time.Time)
	valid := 0

	for _, s := range snapshots {
		market := product.NormalizeMarketplace(s.Marketplace)
		if market == "" {
			result.Skipped = append(result.Skipped, "(unknown): missing marketplace")
			continue
		}
		price := s.Pricing.BuyBoxPrice
		if !price.Valid || !price.Decimal.IsPositive() {
			result.Skipped = append(result.Skipped, market+": no positive buy-box price")
			continue
		}
		currency := s.ResolvedCurrency()
		rate, ok := a.policy.rate(currency)
		if !ok {
			a.logger.Warn().Str("marketplace", market).Str("currency", currency).Msg("no exchange rate, skipping")
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: no rate for currency %q", market, currency))
			continue
		}
		valid++
		mp := MarketPrice{
			Marketplace:    market,
			Currency:       currency,
			LocalPrice:     price.Decimal,
			ReferencePrice: price.Decimal.Mul(rate).Round(places),
		}
		i, seen := kept[market]
		if !seen {
			kept[market] = len(result.Prices)
			captured[market] = s.CapturedAt
			result.Prices = append(result.Prices, mp)
			continue
		}
		result.Skipped = append(result.Skipped, market+": superseded by another snapshot of the same marketplace")
		if supersedes(s.CapturedAt, mp, captured[market], result.Prices[i]) {
			captured[market] = s.CapturedAt
			result.Prices[i] = mp
		}
	}
	sort.Strings(result.Skipped)
	sort.Slice(result.Prices, func(i, j int) bool {
		pi, pj := result.Prices[i], result.Prices[j]
		if c := pi.ReferencePrice.Cmp(pj.ReferencePrice); c != 0 {
			return c < 0
		}
		if pi.Marketplace != pj.Marketplace {
			return pi.Marketplace < pj.Marketplace
		}
		return pi.LocalPrice.LessThan(pj.LocalPrice)
	})

	if valid < 2 {
		result.Outcome = OutcomeInsufficientData
		return result, nil
	}
	if len(result.Prices) < 2 {
		result.Outcome = OutcomeNoOpportunity
		return result, nil
	}

	buy := result.Prices[0]
	sell := result.Prices[len(result.Prices)-1]

	gross := sell.ReferencePrice.Sub(buy.ReferencePrice)
	margin := percentOf(gross, buy.ReferencePrice)

	result.Outcome = OutcomeOpportunity
	result.Opportunity = &ArbitrageOpportunity{
		ASIN:                 asin,
		Title:                truncateTitle(title, a.policy.CrossMarket.MaxTitleLength),
		ReferenceCurrency:    strings.ToUpper(a.policy.CrossMarket.ReferenceCurrency),
		BuyMarketplace:       buy.Marketplace,
		BuyCurrency:          buy.Currency,
		BuyPriceLocal:        buy.LocalPrice,
		BuyPriceReference:    buy.ReferencePrice,
		SellMarketplace:      sell.Marketplace,
		SellCurrency:         sell.Currency,
		SellPriceLocal:       sell.LocalPrice,
		SellPriceReference:   sell.ReferencePrice,
		GrossProfitReference: gross.Round(places),
		ProfitMarginPct:      margin.Round(places),
		Recommendation:       a.Tier(margin),
	}
	return result, nil
}

// supersedes reports whether candidate replaces current for the same
// marketplace: the later capture wins, then the lower price.
func supersedes(candidateAt time.Time, candidate MarketPrice, currentAt time.Time, current MarketPrice) bool {
	if !candidateAt.Equal(currentAt) {
		return candidateAt.After(currentAt)
	}
	if c := candidate.LocalPrice.Cmp(current.LocalPrice); c != 0 {
		return c < 0
	}
	return candidate.Currency < current.Currency
}

// Tier maps a margin percentage onto a recommendation; the most favourable band
// is checked first.
func (a *ArbitrageFinder) Tier(marginPct decimal.Decimal) ArbitrageTier {
	b := a.policy.CrossMarket.Bands
	switch {
	case marginPct.GreaterThanOrEqual(dec(b.StrongBuyPct)):
		return TierStrongBuy
	case marginPct.GreaterThanOrEqual(dec(b.ConditionalPct)):
		return TierConditional
	case marginPct.GreaterThanOrEqual(dec(b.MarginalPct)):
		return TierMarginal
	default:
		return TierNotRecommended
	}
}

// batchIdentity returns the shared ASIN and the first non-empty title, picked
// by marketplace order so it is stable under reordering.
func batchIdentity(snapshots []*product.Snapshot) (string, string, error) {
	var (
		asin        string
		title       string
		titleMarket string
	)
	for _, s := range snapshots {
		if s == nil {
			return "", "", product.ErrNilSnapshot
		}
		id := strings.ToUpper(strings.TrimSpace(s.ASIN()))
		if id == "" {
			return "", "", product.ErrMissingASIN
		}
		if asin == "" {
			asin = id
		} else if id != asin {
			return "", "", fmt.Errorf("%w: %s and %s", ErrMixedASINs, asin, id)
		}
		market := product.NormalizeMarketplace(s.Marketplace)
		if t := s.Identification.Title; t != "" && (title == "" || market < titleMarket) {
			title, titleMarket = t, market
		}
	}
	return asin, title, nil
}

func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if max <= 0 || len(runes) <= max {
		return title
	}
	return string(runes[:max]) + "..."
}
