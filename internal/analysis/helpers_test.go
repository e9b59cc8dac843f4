package analysis

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"merchant-verdict/internal/product"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// baseSnapshot is the hand-computed reference listing: 29.99 buy-box, 4.50 fee,
// no dimensions or weight.
func baseSnapshot() *product.Snapshot {
	s := &product.Snapshot{Marketplace: "us"}
	s.Identification = product.Identity{
		ASIN:         "B000TEST01",
		Title:        "Insulated Bottle",
		Brand:        "Acme",
		CategoryPath: []string{"Kitchen", "Bottles"},
	}
	s.Pricing.BuyBoxPrice = money("29.99")
	s.Pricing.ReferralFeeEstimate = money("4.50")
	s.Pricing.Currency = "USD"
	return s
}

// flimsySnapshot is a low-rated, fast-selling listing with one quality complaint.
func flimsySnapshot() *product.Snapshot {
	s := baseSnapshot()
	s.Sentiment.RatingOverall = product.Float(3.2)
	s.Sales.EstimatedMonthlySales = product.Int(800)
	s.Sales.BestSellerRank = product.Int(1200)
	s.Sentiment.NegativeKeywords = []string{"flimsy"}
	return s
}

func priced(market, currency, price string) *product.Snapshot {
	s := baseSnapshot()
	s.Marketplace = market
	s.Pricing.Currency = currency
	if price == "" {
		s.Pricing.BuyBoxPrice = decimal.NullDecimal{}
	} else {
		s.Pricing.BuyBoxPrice = money(price)
	}
	return s
}
