package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"giftsip-api/internal/models"
	"giftsip-api/internal/printify"
	"giftsip-api/internal/util"

	"go.uber.org/zap"
)

// CatalogAPI fetches authoritative product metadata.
type CatalogAPI interface {
	GetProduct(ctx context.Context, productID string) (*printify.Product, error)
}

// PricingService derives authoritative cart pricing from catalog data.
// Client-submitted prices are never consulted.
type PricingService struct {
	catalog CatalogAPI
	logger  *zap.Logger
}

// NewPricingService creates a new pricing service.
func NewPricingService(catalog CatalogAPI) *PricingService {
	return &PricingService{
		catalog: catalog,
		logger:  util.NamedLogger("pricing"),
	}
}

const (
	maxPriceItems = 20
	maxQuantity   = 100
)

// Price computes per-line unit price, line total and cart subtotal for
// 1..20 items. Distinct products are fetched concurrently; one product's
// fetch failure marks only its own lines unavailable and never aborts
// the rest of the cart.
func (s *PricingService) Price(ctx context.Context, items []models.CartLine) (*models.PriceResult, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.Price")
	defer span.End()

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidInput)
	}
	if len(items) > maxPriceItems {
		return nil, fmt.Errorf("%w: too many items", ErrInvalidInput)
	}
	for _, it := range items {
		if it.ProductID == "" || it.VariantID == 0 {
			return nil, fmt.Errorf("%w: invalid item identifiers", ErrInvalidInput)
		}
	}

	productIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			productIDs = append(productIDs, it.ProductID)
		}
	}

	products := s.fetchProducts(ctx, productIDs)

	var subtotal float64
	lines := make([]models.PricedLine, 0, len(items))

	for _, it := range items {
		qty := clampQuantity(it.Quantity)
		product := products[it.ProductID]

		if product == nil {
			util.PriceLinesUnavailable.WithLabelValues(models.ReasonProductNotFound).Inc()
			lines = append(lines, models.PricedLine{
				CartID:      it.CartID,
				Unavailable: true,
				Reason:      models.ReasonProductNotFound,
			})
			continue
		}

		line := priceLine(product, it.CartID, it.VariantID, qty)
		if line.Unavailable {
			util.PriceLinesUnavailable.WithLabelValues(line.Reason).Inc()
		}
		subtotal += line.LineTotal
		lines = append(lines, line)
	}

	util.PriceChecksTotal.Inc()

	return &models.PriceResult{
		Currency: "USD",
		Subtotal: round2(subtotal),
		Lines:    lines,
	}, nil
}

// fetchProducts fans out catalog lookups for distinct products and
// collects every result, failures included. Failed products are simply
// absent from the returned map.
func (s *PricingService) fetchProducts(ctx context.Context, productIDs []string) map[string]*printify.Product {
	type fetchResult struct {
		productID string
		product   *printify.Product
		err       error
	}

	results := make([]fetchResult, len(productIDs))

	var wg sync.WaitGroup
	for i, pid := range productIDs {
		wg.Add(1)
		go func(i int, pid string) {
			defer wg.Done()
			product, err := s.catalog.GetProduct(ctx, pid)
			results[i] = fetchResult{productID: pid, product: product, err: err}
		}(i, pid)
	}
	wg.Wait()

	products := make(map[string]*printify.Product, len(productIDs))
	for _, r := range results {
		if r.err != nil {
			s.logger.Warn("Product fetch failed",
				zap.String("product_id", r.productID),
				zap.Error(r.err))
			continue
		}
		products[r.productID] = r.product
	}
	return products
}

// priceLine prices one (variant, quantity) against fetched metadata.
func priceLine(product *printify.Product, cartID string, variantID, qty int) models.PricedLine {
	var variant *printify.Variant
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			variant = &product.Variants[i]
			break
		}
	}

	line := models.PricedLine{CartID: cartID}

	switch {
	case variant == nil:
		line.Unavailable = true
		line.Reason = models.ReasonVariantNotFound
		return line
	case !variant.IsEnabled:
		line.Unavailable = true
		line.Reason = models.ReasonVariantDisabled
	case variant.Price <= 0:
		line.Unavailable = true
		line.Reason = models.ReasonMissingPrice
	}

	line.SizeTitle = optionTitle(product, "size", variant.Options)
	line.ColorTitle = optionTitle(product, "color", variant.Options)

	if line.Unavailable {
		return line
	}

	unit := float64(variant.Price) / 100
	line.UnitPrice = round2(unit)
	line.LineTotal = round2(unit * float64(qty))
	return line
}

// optionTitle resolves a variant's display title for the option axis
// whose type or name matches optType.
func optionTitle(product *printify.Product, optType string, variantOptionIDs []int) string {
	var opt *printify.ProductOption
	for i := range product.Options {
		o := &product.Options[i]
		if o.Type == optType || strings.Contains(strings.ToLower(o.Name), optType) {
			opt = o
			break
		}
	}
	if opt == nil {
		return ""
	}

	for _, v := range opt.Values {
		for _, id := range variantOptionIDs {
			if v.ID == id {
				return v.Title
			}
		}
	}
	return ""
}

func clampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	if q > maxQuantity {
		return maxQuantity
	}
	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
