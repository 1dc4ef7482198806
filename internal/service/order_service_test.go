package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"giftsip-api/internal/guard"
	"giftsip-api/internal/models"
	"giftsip-api/internal/printify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct {
	order *models.PaymentOrder
	err   error
}

func (f *fakePayments) GetOrder(context.Context, string) (*models.PaymentOrder, error) {
	return f.order, f.err
}

type fakeFulfiller struct {
	calls int
	id    string
	err   error
}

func (f *fakeFulfiller) SubmitOrder(_ context.Context, _ *models.FulfillmentOrder) (string, error) {
	f.calls++
	return f.id, f.err
}

func newOrderService(t *testing.T, payments PaymentAPI, fulfiller Fulfiller) *OrderService {
	t.Helper()
	pricing := NewPricingService(&fakeCatalog{products: map[string]*printify.Product{"P1": mugProduct()}})
	shipping := NewShippingService(nil)
	store := guard.NewMemoryStore(15 * time.Minute)
	return NewOrderService(pricing, shipping, payments, fulfiller, store, 20*time.Second)
}

func validOrderRequest() *models.OrderRequest {
	return &models.OrderRequest{
		Email:      "buyer@example.com",
		ExternalID: "ext-1",
		Shipping: models.Address{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			Address1:    "1 Main St",
			City:        "Springfield",
			State:       "IL",
			Zip:         "62701",
			CountryCode: "US",
		},
		Items: []models.CartLine{
			{CartID: "c1", ProductID: "P1", VariantID: 1, Quantity: 2, Title: "Ceramic Mug 11oz"},
		},
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	svc := newOrderService(t, &fakePayments{}, fulfiller)

	resp, err := svc.CreateOrder(context.Background(), validOrderRequest())
	require.NoError(t, err)

	assert.True(t, resp.OK)
	assert.Equal(t, "po-123", resp.FulfillmentOrderID)
	assert.Equal(t, 20.00, resp.Subtotal)
	// mug11 US: first 6.99 + one additional 2.99
	assert.Equal(t, 9.98, resp.ShippingCost)
	assert.Equal(t, 29.98, resp.Total)
	assert.Equal(t, 1, fulfiller.calls)
}

func TestCreateOrderDuplicate(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	svc := newOrderService(t, &fakePayments{}, fulfiller)

	_, err := svc.CreateOrder(context.Background(), validOrderRequest())
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), validOrderRequest())
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, fulfiller.calls, "fulfillment API must not be called twice")
}

func TestCreateOrderAmountMismatch(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	payments := &fakePayments{order: &models.PaymentOrder{
		Status:     models.PaymentStatusCompleted,
		AmountPaid: 10.00,
	}}
	svc := newOrderService(t, payments, fulfiller)

	req := validOrderRequest()
	req.PayPalOrderID = "pp-1"

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, 0, fulfiller.calls, "fulfillment API must not be called")
}

func TestCreateOrderAmountWithinTolerance(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	payments := &fakePayments{order: &models.PaymentOrder{
		Status:     models.PaymentStatusCompleted,
		AmountPaid: 29.97,
	}}
	svc := newOrderService(t, payments, fulfiller)

	req := validOrderRequest()
	req.PayPalOrderID = "pp-1"

	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, fulfiller.calls)
}

func TestCreateOrderPaymentNotCompleted(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	payments := &fakePayments{order: &models.PaymentOrder{Status: models.PaymentStatusCreated}}
	svc := newOrderService(t, payments, fulfiller)

	req := validOrderRequest()
	req.PayPalOrderID = "pp-1"

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, 0, fulfiller.calls)
}

func TestCreateOrderApprovedSkipsAmountCheck(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	payments := &fakePayments{order: &models.PaymentOrder{
		Status:     models.PaymentStatusApproved,
		AmountPaid: 1.00,
	}}
	svc := newOrderService(t, payments, fulfiller)

	req := validOrderRequest()
	req.PayPalOrderID = "pp-1"

	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, fulfiller.calls)
}

func TestCreateOrderPaymentVerificationFailure(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	payments := &fakePayments{err: errors.New("processor down")}
	svc := newOrderService(t, payments, fulfiller)

	req := validOrderRequest()
	req.PayPalOrderID = "pp-1"

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, 0, fulfiller.calls)
}

func TestCreateOrderMissingCity(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	svc := newOrderService(t, &fakePayments{}, fulfiller)

	req := validOrderRequest()
	req.Shipping.City = ""

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, fulfiller.calls, "fulfillment API must never be called")
}

func TestCreateOrderMissingIdentifiers(t *testing.T) {
	svc := newOrderService(t, &fakePayments{}, &fakeFulfiller{})

	req := validOrderRequest()
	req.Items[0].ProductID = ""

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrMissingIdentifiers)
}

func TestCreateOrderUnavailableItemRejected(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	svc := newOrderService(t, &fakePayments{}, fulfiller)

	req := validOrderRequest()
	req.Items = []models.CartLine{
		{CartID: "c1", ProductID: "P1", VariantID: 2, Quantity: 1, Title: "Ceramic Mug 11oz"},
	}

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnavailableItem)
	assert.Equal(t, 0, fulfiller.calls)
}

func TestCreateOrderTrustsClientShippingWhenOptedOut(t *testing.T) {
	fulfiller := &fakeFulfiller{id: "po-123"}
	svc := newOrderService(t, &fakePayments{}, fulfiller)

	noRecompute := false
	req := validOrderRequest()
	req.RecomputeShipping = &noRecompute
	req.ShippingCost = 4.20

	resp, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4.20, resp.ShippingCost)
	assert.Equal(t, 24.20, resp.Total)
}

func TestCreateOrderFulfillmentFailure(t *testing.T) {
	fulfiller := &fakeFulfiller{err: errors.New("printify 500")}
	svc := newOrderService(t, &fakePayments{}, fulfiller)

	_, err := svc.CreateOrder(context.Background(), validOrderRequest())
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestBuildFulfillmentOrder(t *testing.T) {
	req := validOrderRequest()
	req.Shipping.CountryCode = ""
	req.Shipping.Country = "United States"
	req.Phone = "555-0100"

	order := buildFulfillmentOrder(req, "idem-key")

	assert.Equal(t, "idem-key", order.ExternalID)
	assert.Equal(t, 1, order.ShippingMethod)
	assert.False(t, order.SendShippingNotification)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, "P1", order.LineItems[0].ProductID)
	assert.Equal(t, 1, order.LineItems[0].VariantID)
	assert.Equal(t, 2, order.LineItems[0].Quantity)
	assert.Equal(t, "US", order.AddressTo.Country)
	assert.Equal(t, "buyer@example.com", order.AddressTo.Email)
	assert.Equal(t, "555-0100", order.AddressTo.Phone)
}
