package product

import (
	"sort"
	"strings"
)

// Marketplace describes a regional storefront.
type Marketplace struct {
	Code     string
	Country  string
	Currency string
	Host     string
}

var marketplaces = map[string]Marketplace{
	"us": {Code: "us", Country: "United States", Currency: "USD", Host: "www.amazon.com"},
	"ca": {Code: "ca", Country: "Canada", Currency: "CAD", Host: "www.amazon.ca"},
	"uk": {Code: "uk", Country: "United Kingdom", Currency: "GBP", Host: "www.amazon.co.uk"},
	"de": {Code: "de", Country: "Germany", Currency: "EUR", Host: "www.amazon.de"},
	"fr": {Code: "fr", Country: "France", Currency: "EUR", Host: "www.amazon.fr"},
	"es": {Code: "es", Country: "Spain", Currency: "EUR", Host: "www.amazon.es"},
	"it": {Code: "it", Country: "Italy", Currency: "EUR", Host: "www.amazon.it"},
	"jp": {Code: "jp", Country: "Japan", Currency: "JPY", Host: "www.amazon.co.jp"},
	"au": {Code: "au", Country: "Australia", Currency: "AUD", Host: "www.amazon.com.au"},
	"in": {Code: "in", Country: "India", Currency: "INR", Host: "www.amazon.in"},
	"mx": {Code: "mx", Country: "Mexico", Currency: "MXN", Host: "www.amazon.com.mx"},
}

// aliases map ISO spellings onto the codes merchants use.
var aliases = map[string]string{
	"gb": "uk",
}

// NormalizeMarketplace lower-cases a marketplace code and resolves aliases.
// "amazon_us" style prefixes are stripped.
func NormalizeMarketplace(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	normalized = strings.TrimPrefix(normalized, "amazon_")
	if canonical, ok := aliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// LookupMarketplace returns the known marketplace for a code.
func LookupMarketplace(code string) (Marketplace, bool) {
	mp, ok := marketplaces[NormalizeMarketplace(code)]
	return mp, ok
}

// Marketplaces lists the supported marketplace codes in sorted order.
func Marketplaces() []string {
	codes := make([]string, 0, len(marketplaces))
	for code := range marketplaces {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
