package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"giftsip-api/internal/models"
	"giftsip-api/internal/util"

	"go.uber.org/zap"
)

// Category is a shipping-relevant item bucket.
type Category string

const (
	CategoryShirt   Category = "SHIRT"
	CategoryMug11   Category = "MUG11"
	CategoryMug15   Category = "MUG15"
	CategoryUnknown Category = "UNKNOWN"
)

// ItemClassifier buckets an item into a shipping category from its
// display metadata. The title heuristic below is the default strategy;
// a structured-catalog classifier can replace it without touching
// callers.
type ItemClassifier interface {
	Classify(title, variantTitle string) Category
}

// TitleClassifier classifies by case-insensitive substring matching on
// the product and variant titles.
type TitleClassifier struct{}

// Classify implements ItemClassifier.
func (TitleClassifier) Classify(title, variantTitle string) Category {
	t := strings.ToLower(title)
	if strings.Contains(t, "t-shirt") || strings.Contains(t, "tshirt") ||
		strings.Contains(t, "tee") || strings.Contains(t, "shirt") {
		return CategoryShirt
	}
	if strings.Contains(t, "mug") {
		if strings.Contains(t, "15") || strings.Contains(strings.ToLower(variantTitle), "15") {
			return CategoryMug15
		}
		return CategoryMug11
	}
	return CategoryUnknown
}

// rate is a "first item + additional item" price row with an estimated
// delivery range in days.
type rate struct {
	first float64
	add   float64
	eta   string
}

// Standard rates in USD, highest-safe per region.
var (
	shirtRates = map[string]rate{
		models.RegionUS:   {first: 5.89, add: 2.99, eta: "2-5"},
		models.RegionCA:   {first: 9.39, add: 4.39, eta: "10-30"},
		models.RegionGB:   {first: 5.49, add: 1.99, eta: "2-5"},
		models.RegionEU:   {first: 7.79, add: 2.99, eta: "5-15"},
		models.RegionAUNZ: {first: 12.49, add: 4.99, eta: "10-30"},
		models.RegionROW:  {first: 10.00, add: 4.00, eta: "10-30"},
	}
	mug11Rates = map[string]rate{
		models.RegionUS:   {first: 6.99, add: 2.99, eta: "2-8"},
		models.RegionCA:   {first: 14.89, add: 6.09, eta: "10-30"},
		models.RegionGB:   {first: 21.19, add: 7.99, eta: "10-30"},
		models.RegionEU:   {first: 21.19, add: 7.99, eta: "10-30"},
		models.RegionAUNZ: {first: 21.19, add: 7.99, eta: "10-30"},
		models.RegionROW:  {first: 21.19, add: 7.99, eta: "10-30"},
	}
	mug15Rates = map[string]rate{
		models.RegionUS:   {first: 8.99, add: 3.99, eta: "2-8"},
		models.RegionCA:   {first: 14.89, add: 7.49, eta: "10-30"},
		models.RegionGB:   {first: 21.19, add: 8.79, eta: "10-30"},
		models.RegionEU:   {first: 21.19, add: 8.79, eta: "10-30"},
		models.RegionAUNZ: {first: 21.19, add: 8.79, eta: "10-30"},
		models.RegionROW:  {first: 21.19, add: 8.79, eta: "10-30"},
	}

	categoryRates = map[Category]map[string]rate{
		CategoryShirt: shirtRates,
		CategoryMug11: mug11Rates,
		CategoryMug15: mug15Rates,
	}
)

var euCodes = map[string]bool{
	"IE": true, "DE": true, "FR": true, "IT": true, "ES": true, "NL": true,
	"BE": true, "AT": true, "SE": true, "NO": true, "DK": true, "FI": true,
	"PL": true, "CZ": true, "HU": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "HR": true, "EE": true, "LV": true, "LT": true, "GR": true,
	"BG": true, "LU": true, "MT": true, "CY": true,
}

var countryAliases = map[string]string{
	"united kingdom":           "GB",
	"great britain":            "GB",
	"britain":                  "GB",
	"england":                  "GB",
	"scotland":                 "GB",
	"wales":                    "GB",
	"northern ireland":         "GB",
	"united states":            "US",
	"united states of america": "US",
	"usa":                      "US",
	"canada":                   "CA",
	"australia":                "AU",
	"new zealand":              "NZ",
}

// NormalizeCountry resolves a 2-letter code or a common full name/alias
// to an ISO2 code. Unresolvable names fall into the rest-of-world bucket
// rather than failing.
func NormalizeCountry(country string) string {
	s := strings.TrimSpace(country)
	if s == "" {
		return "US"
	}

	if len(s) == 2 {
		up := strings.ToUpper(s)
		switch up {
		case "UK":
			return "GB"
		case "EL":
			return "GR"
		}
		return up
	}

	if cc, ok := countryAliases[strings.ToLower(s)]; ok {
		return cc
	}
	return models.RegionROW
}

// RegionFor buckets an ISO2 country code into a rate-table region.
func RegionFor(countryCode string) string {
	switch countryCode {
	case "US":
		return models.RegionUS
	case "CA":
		return models.RegionCA
	case "GB":
		return models.RegionGB
	case "AU", "NZ":
		return models.RegionAUNZ
	}
	if euCodes[countryCode] {
		return models.RegionEU
	}
	return models.RegionROW
}

// ShippingService computes standard-shipping quotes from the static rate
// tables. Deterministic: identical inputs always produce identical
// quotes.
type ShippingService struct {
	classifier ItemClassifier
	logger     *zap.Logger
}

// NewShippingService creates a shipping service; a nil classifier falls
// back to the title heuristic.
func NewShippingService(classifier ItemClassifier) *ShippingService {
	if classifier == nil {
		classifier = TitleClassifier{}
	}
	return &ShippingService{
		classifier: classifier,
		logger:     util.NamedLogger("shipping"),
	}
}

// Quote computes the shipping cost for items to dest. The destination
// must be complete (country, address line, city, state, zip). Cost is
// always in USD regardless of destination. Unclassified items do not
// contribute to the cost.
func (s *ShippingService) Quote(ctx context.Context, items []models.CartLine, dest models.Address) (*models.ShippingQuote, error) {
	_, span := util.StartSpan(ctx, "ShippingService.Quote")
	defer span.End()

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrInvalidInput)
	}

	country := dest.CountryCode
	if country == "" {
		country = dest.Country
	}
	if country == "" || dest.Address1 == "" || dest.City == "" || dest.State == "" || dest.Zip == "" {
		return nil, fmt.Errorf("%w: full address and country required", ErrInvalidInput)
	}

	cc := NormalizeCountry(country)
	region := RegionFor(cc)

	quantities := make(map[Category]int)
	for _, it := range items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		cat := s.classifier.Classify(it.Title, it.VariantTitle)
		if cat == CategoryUnknown {
			continue
		}
		quantities[cat] += qty
	}

	var total float64
	eta := ""
	for _, cat := range []Category{CategoryShirt, CategoryMug11, CategoryMug15} {
		qty := quantities[cat]
		if qty == 0 {
			continue
		}
		r := categoryRates[cat][region]
		total += r.first + float64(qty-1)*r.add
		eta = slowerEta(eta, r.eta)
	}
	if eta == "" {
		eta = "10-30"
	}

	util.ShippingQuotesTotal.WithLabelValues(region).Inc()

	return &models.ShippingQuote{
		Method:        "standard",
		Cost:          round2(total),
		Currency:      "USD",
		EstimatedDays: eta,
		Region:        region,
		CountryCode:   cc,
	}, nil
}

// slowerEta returns whichever "low-high" day range has the larger upper
// bound.
func slowerEta(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if etaUpperBound(b) > etaUpperBound(a) {
		return b
	}
	return a
}

func etaUpperBound(eta string) int {
	parts := strings.Split(eta, "-")
	last := parts[len(parts)-1]
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, last)
	n, _ := strconv.Atoi(digits)
	return n
}
