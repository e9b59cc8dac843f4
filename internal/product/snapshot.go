// Package product defines the listing snapshot consumed by the analysis engine.
package product

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNilSnapshot is returned when a nil snapshot reaches a boundary.
	ErrNilSnapshot      = errors.New("product: snapshot is nil")
	// ErrMissingASIN is returned when the mandatory catalog identifier is empty.
	ErrMissingASIN      = errors.New("product: identification.asin is required")
	// ErrDataQualityRange is returned for a data quality score outside [0,1].
	ErrDataQualityRange = errors.New("product: data_quality_score outside [0,1]")
)

// Snapshot is one point-in-time record of a marketplace listing.
// The analysis engine never mutates it.
type Snapshot struct {
	Marketplace      string      `json:"marketplace"`
	CapturedAt       time.Time   `json:"captured_at"`
	Identification   Identity    `json:"identification"`
	Pricing          Pricing     `json:"pricing_mechanics"`
	Logistics        Logistics   `json:"logistics_and_physical"`
	Competition      Competition `json:"competition_and_inventory"`
	Sales            Sales       `json:"sales_analytics"`
	Sentiment        Sentiment   `json:"sentiment_and_quality"`
	Risk             RiskSignals `json:"risk_assessment"`
	DataQualityScore OptFloat    `json:"data_quality_score"`
}

// Identity holds catalog identity fields.
type Identity struct {
	ASIN         string   `json:"asin"`
	Title        string   `json:"title,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	CategoryPath []string `json:"category_path,omitempty"`
}

// Pricing holds buy-box and fee data.
type Pricing struct {
	BuyBoxPrice         decimal.NullDecimal `json:"buy_box_price"`
	ListPrice           decimal.NullDecimal `json:"list_price"`
	Currency            string              `json:"currency,omitempty"`
	ReferralFeeEstimate decimal.NullDecimal `json:"amazon_referral_fee_est"`
	PriceStabilityScore OptFloat            `json:"price_stability_score"`
}

// Logistics holds package weight and dimensions. Dimensions may be nil.
type Logistics struct {
	PackageWeightGrams OptFloat    `json:"package_weight_grams"`
	DimensionsCM       *Dimensions `json:"dimensions_cm,omitempty"`
}

// Dimensions are package dimensions in centimetres.
type Dimensions struct {
	Length OptFloat `json:"length"`
	Width  OptFloat `json:"width"`
	Height OptFloat `json:"height"`
}

// Complete reports whether all three axes are present and positive.
func (d *Dimensions) Complete() bool {
	if d == nil {
		return false
	}
	return d.Length.Or(0) > 0 && d.Width.Or(0) > 0 && d.Height.Or(0) > 0
}

// Competition describes the seller landscape.
type Competition struct {
	FBASellerCount   OptInt `json:"fba_seller_count"`
	TotalOfferCount  OptInt `json:"total_offer_count"`
	PlatformIsSeller bool   `json:"amazon_is_seller"`
}

// Sales describes demand.
type Sales struct {
	BestSellerRank        OptInt   `json:"bsr_current"`
	RankChangePercentage  OptFloat `json:"bsr_change_percentage"`
	EstimatedMonthlySales OptInt   `json:"estimated_monthly_sales"`
}

// Sentiment summarises reviews. NegativeKeywords are ordered most frequent first.
type Sentiment struct {
	RatingOverall         OptFloat `json:"rating_overall"`
	ReviewVelocityMonthly OptInt   `json:"review_velocity_monthly"`
	NegativeKeywords      []string `json:"top_negative_keywords,omitempty"`
}

// RiskSignals carries qualitative risk inputs as scraped.
type RiskSignals struct {
	IPInfringementRisk  string   `json:"ip_infringement_risk,omitempty"`
	ReturnRateEstimated OptFloat `json:"return_rate_estimated"`
	SeasonalFactor      string   `json:"seasonal_factor,omitempty"`
}

// ASIN is a shorthand for the catalog identifier.
func (s *Snapshot) ASIN() string {
	return s.Identification.ASIN
}

// Category returns the outermost category or "".
func (s *Snapshot) Category() string {
	if len(s.Identification.CategoryPath) == 0 {
		return ""
	}
	return s.Identification.CategoryPath[0]
}

// Validate checks the caller-side contract: a snapshot must carry its identity.
// It normalises the ASIN and marketplace code in place.
func (s *Snapshot) Validate() error {
	if s == nil {
		return ErrNilSnapshot
	}
	s.Identification.ASIN = strings.ToUpper(strings.TrimSpace(s.Identification.ASIN))
	if s.Identification.ASIN == "" {
		return ErrMissingASIN
	}
	if s.Marketplace != "" {
		s.Marketplace = NormalizeMarketplace(s.Marketplace)
	}
	if q := s.DataQualityScore; q.Valid && !(q.Value >= 0 && q.Value <= 1) {
		return fmt.Errorf("%w: product %s has %.3f", ErrDataQualityRange, s.Identification.ASIN, q.Value)
	}
	return nil
}

// ResolvedCurrency returns the snapshot's currency code, falling back to the marketplace home currency.
func (s *Snapshot) ResolvedCurrency() string {
	if code := strings.ToUpper(strings.TrimSpace(s.Pricing.Currency)); code != "" {
		return code
	}
	if mp, ok := LookupMarketplace(s.Marketplace); ok {
		return mp.Currency
	}
	return ""
}
