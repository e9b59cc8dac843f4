package analysis

import (
	"strings"

	"github.com/shopspring/decimal"

	"merchant-verdict/internal/product"
)

// facts is a snapshot with every absent field replaced by its documented default.
// All default substitution happens in resolve and nowhere else.
type facts struct {
	buyBox      decimal.Decimal
	listPrice   decimal.Decimal
	referralFee decimal.Decimal
	stability   float64

	weightGrams float64
	dims        *product.Dimensions

	platformIsSeller bool
	fbaSellers       int
	totalOffers      int

	rank         int
	rankChange   float64
	monthlySales int

	rating         float64
	reviewVelocity int
	negativeWords  []string

	ipRisk     string
	returnRate float64
	seasonal   string

	dataQuality float64
}

func resolve(s *product.Snapshot, d InputDefaults) facts {
	f := facts{
		buyBox:      decimalOrZero(s.Pricing.BuyBoxPrice),
		listPrice:   decimalOrZero(s.Pricing.ListPrice),
		referralFee: decimalOrZero(s.Pricing.ReferralFeeEstimate),
		stability:   s.Pricing.PriceStabilityScore.Or(d.PriceStability),

		weightGrams: s.Logistics.PackageWeightGrams.Or(d.PackageWeightGrams),

		platformIsSeller: s.Competition.PlatformIsSeller,
		fbaSellers:       s.Competition.FBASellerCount.Or(0),
		totalOffers:      s.Competition.TotalOfferCount.Or(0),

		rank:         s.Sales.BestSellerRank.Or(d.BestSellerRank),
		rankChange:   s.Sales.RankChangePercentage.Or(0),
		monthlySales: s.Sales.EstimatedMonthlySales.Or(0),

		rating:         s.Sentiment.RatingOverall.Or(d.Rating),
		reviewVelocity: s.Sentiment.ReviewVelocityMonthly.Or(0),
		negativeWords:  s.Sentiment.NegativeKeywords,

		ipRisk:     strings.ToLower(strings.TrimSpace(s.Risk.IPInfringementRisk)),
		returnRate: s.Risk.ReturnRateEstimated.Or(0),
		seasonal:   strings.TrimSpace(s.Risk.SeasonalFactor),

		dataQuality: s.DataQualityScore.Or(0),
	}
	if s.Logistics.DimensionsCM.Complete() {
		f.dims = s.Logistics.DimensionsCM
	}
	if f.weightGrams <= 0 {
		f.weightGrams = d.PackageWeightGrams
	}
	if f.rank <= 0 {
		f.rank = d.BestSellerRank
	}
	if f.rating <= 0 {
		f.rating = d.Rating
	}
	if f.seasonal == "" {
		f.seasonal = d.SeasonalLabel
	}
	return f
}

func decimalOrZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

var hundred = decimal.NewFromInt(100)

// percentOf returns num/den*100, or zero when den is not positive.
func percentOf(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred)
}
