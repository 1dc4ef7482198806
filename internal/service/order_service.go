package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"giftsip-api/internal/guard"
	"giftsip-api/internal/models"
	"giftsip-api/internal/util"

	"go.uber.org/zap"
)

// Pricer derives authoritative cart pricing.
type Pricer interface {
	Price(ctx context.Context, items []models.CartLine) (*models.PriceResult, error)
}

// ShippingQuoter derives authoritative shipping cost.
type ShippingQuoter interface {
	Quote(ctx context.Context, items []models.CartLine, dest models.Address) (*models.ShippingQuote, error)
}

// PaymentAPI reads payment state from the processor.
type PaymentAPI interface {
	GetOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error)
}

// Fulfiller places fulfillment orders.
type Fulfiller interface {
	SubmitOrder(ctx context.Context, order *models.FulfillmentOrder) (string, error)
}

// OrderService runs the checkout workflow: validate, dedupe, price,
// quote shipping, verify payment, place the fulfillment order. The
// fulfillment payload is built only from server-derived fields.
type OrderService struct {
	pricing        Pricer
	shipping       ShippingQuoter
	payments       PaymentAPI
	fulfiller      Fulfiller
	idempotency    guard.Store
	fulfillTimeout time.Duration
	logger         *zap.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	pricing Pricer,
	shipping ShippingQuoter,
	payments PaymentAPI,
	fulfiller Fulfiller,
	idempotency guard.Store,
	fulfillTimeout time.Duration,
) *OrderService {
	return &OrderService{
		pricing:        pricing,
		shipping:       shipping,
		payments:       payments,
		fulfiller:      fulfiller,
		idempotency:    idempotency,
		fulfillTimeout: fulfillTimeout,
		logger:         util.NamedLogger("orders"),
	}
}

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const maxOrderItems = 10

// CreateOrder processes one checkout attempt. A duplicate external id
// within the TTL window is rejected without touching the fulfillment
// API; a COMPLETED payment whose amount differs from the computed total
// by more than AmountTolerance is a hard stop.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateOrderRequest(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	idemKey := req.ExternalID
	if idemKey == "" {
		idemKey = fmt.Sprintf("order_%s_%d", req.Email, time.Now().UnixMilli())
	}

	duplicate, err := s.idempotency.Seen(ctx, idemKey)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency check: %v", ErrUpstream, err)
	}
	if duplicate {
		util.OrdersDuplicateTotal.Inc()
		s.logger.Info("Duplicate order attempt", zap.String("external_id", idemKey))
		return nil, ErrDuplicate
	}

	priced, err := s.pricing.Price(ctx, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("pricing_failed").Inc()
		return nil, err
	}
	for _, line := range priced.Lines {
		if line.Unavailable {
			util.OrdersFailedTotal.WithLabelValues("unavailable_item").Inc()
			return nil, fmt.Errorf("%w: %s", ErrUnavailableItem, line.Reason)
		}
	}
	subtotal := priced.Subtotal

	shippingCost := req.ShippingCost
	if recomputeShipping(req) {
		quote, err := s.shipping.Quote(ctx, req.Items, req.Shipping)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues("shipping_failed").Inc()
			return nil, err
		}
		shippingCost = quote.Cost
	} else {
		s.logger.Warn("Trusting caller-supplied shipping cost",
			zap.String("external_id", idemKey),
			zap.Float64("shipping_cost", shippingCost))
	}

	expectedTotal := round2(subtotal + shippingCost)

	if req.PayPalOrderID != "" {
		if err := s.verifyPayment(ctx, req.PayPalOrderID, expectedTotal); err != nil {
			return nil, err
		}
	}

	fulfillCtx, cancel := context.WithTimeout(ctx, s.fulfillTimeout)
	defer cancel()

	fulfillmentOrderID, err := s.fulfiller.SubmitOrder(fulfillCtx, buildFulfillmentOrder(req, idemKey))
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("fulfillment_failed").Inc()
		s.logger.Error("Fulfillment order failed",
			zap.String("external_id", idemKey),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("external_id", idemKey),
		zap.String("fulfillment_order_id", fulfillmentOrderID),
		zap.Float64("total", expectedTotal))

	return &models.OrderResponse{
		OK:                 true,
		FulfillmentOrderID: fulfillmentOrderID,
		Subtotal:           subtotal,
		ShippingCost:       shippingCost,
		Total:              expectedTotal,
	}, nil
}

// verifyPayment gates fulfillment on processor state: the order must be
// COMPLETED or APPROVED, and a COMPLETED payment must match the computed
// total within AmountTolerance.
func (s *OrderService) verifyPayment(ctx context.Context, paypalOrderID string, expectedTotal float64) error {
	util.PaymentVerificationsTotal.Inc()

	order, err := s.payments.GetOrder(ctx, paypalOrderID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("payment_verification_failed").Inc()
		s.logger.Error("Payment verification failed",
			zap.String("paypal_order_id", paypalOrderID),
			zap.Error(err))
		return fmt.Errorf("%w: payment verification: %v", ErrUpstream, err)
	}

	if order.Status != models.PaymentStatusCompleted && order.Status != models.PaymentStatusApproved {
		util.OrdersFailedTotal.WithLabelValues("payment_not_completed").Inc()
		return ErrPaymentNotCompleted
	}

	if order.Status == models.PaymentStatusCompleted &&
		math.Abs(order.AmountPaid-expectedTotal) > AmountTolerance {
		util.OrdersFailedTotal.WithLabelValues("amount_mismatch").Inc()
		s.logger.Warn("Payment amount mismatch",
			zap.String("paypal_order_id", paypalOrderID),
			zap.Float64("paid", order.AmountPaid),
			zap.Float64("expected", expectedTotal))
		return ErrAmountMismatch
	}
	return nil
}

func validateOrderRequest(req *models.OrderRequest) error {
	if req == nil {
		return fmt.Errorf("%w: body required", ErrInvalidInput)
	}
	if !emailRx.MatchString(req.Email) {
		return fmt.Errorf("%w: valid email required", ErrInvalidInput)
	}
	if req.Shipping.FirstName == "" {
		return fmt.Errorf("%w: first name required", ErrInvalidInput)
	}
	if req.Shipping.Address1 == "" {
		return fmt.Errorf("%w: address required", ErrInvalidInput)
	}
	if req.Shipping.City == "" {
		return fmt.Errorf("%w: city required", ErrInvalidInput)
	}
	if req.Shipping.Zip == "" {
		return fmt.Errorf("%w: zip required", ErrInvalidInput)
	}
	if len(req.Items) == 0 || len(req.Items) > maxOrderItems {
		return fmt.Errorf("%w: invalid items", ErrInvalidInput)
	}
	for _, it := range req.Items {
		if it.Quantity < 0 || it.Quantity > maxQuantity {
			return fmt.Errorf("%w: invalid quantity", ErrInvalidInput)
		}
		if it.ProductID == "" || it.VariantID == 0 {
			return ErrMissingIdentifiers
		}
	}
	return nil
}

// recomputeShipping defaults to true: "never trust client money" extends
// to the shipping component. Callers may opt out explicitly.
func recomputeShipping(req *models.OrderRequest) bool {
	if req.RecomputeShipping == nil {
		return true
	}
	return *req.RecomputeShipping
}

func buildFulfillmentOrder(req *models.OrderRequest, idemKey string) *models.FulfillmentOrder {
	lineItems := make([]models.FulfillmentLineItem, 0, len(req.Items))
	for _, it := range req.Items {
		lineItems = append(lineItems, models.FulfillmentLineItem{
			ProductID:  it.ProductID,
			VariantID:  it.VariantID,
			Quantity:   clampQuantity(it.Quantity),
			ExternalID: it.CartID,
		})
	}

	shippingMethod := req.ShippingMethod
	if shippingMethod == 0 {
		shippingMethod = 1
	}

	country := req.Shipping.CountryCode
	if country == "" {
		country = NormalizeCountry(req.Shipping.Country)
	}

	return &models.FulfillmentOrder{
		ExternalID:               idemKey,
		Label:                    req.ExternalID,
		LineItems:                lineItems,
		ShippingMethod:           shippingMethod,
		SendShippingNotification: false,
		AddressTo: models.FulfillmentAddress{
			FirstName: req.Shipping.FirstName,
			LastName:  req.Shipping.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Country:   country,
			Region:    req.Shipping.State,
			Address1:  req.Shipping.Address1,
			Address2:  req.Shipping.Address2,
			City:      req.Shipping.City,
			Zip:       req.Shipping.Zip,
		},
	}
}
