package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"giftsip-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "secret", pass)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "grant_type=client_credentials", string(body))
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, "client-id", "secret", "wh-1", 5*time.Second)
}

func TestAccessTokenMissingCredentials(t *testing.T) {
	c := NewClient("http://unused", "", "", "", time.Second)
	_, err := c.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCaptureOrderSendsNoBody(t *testing.T) {
	var captured []byte
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders/pp-1/capture", r.URL.Path)
		captured, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "pp-1", "status": "COMPLETED"})
	})

	c := newTestClient(srv)
	result, err := c.CaptureOrder(context.Background(), "pp-1")
	require.NoError(t, err)

	// the capture endpoint rejects `{}`; the request must carry no body
	assert.Empty(t, captured)
	assert.Contains(t, string(result), "COMPLETED")
}

func TestCaptureOrderRequiresID(t *testing.T) {
	c := NewClient("http://unused", "id", "secret", "", time.Second)
	_, err := c.CaptureOrder(context.Background(), "")
	assert.Error(t, err)
}

func TestGetOrder(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders/pp-7", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "pp-7",
			"status": "COMPLETED",
			"purchase_units": []map[string]interface{}{
				{"amount": map[string]string{"currency_code": "USD", "value": "29.98"}},
			},
		})
	})

	c := newTestClient(srv)
	order, err := c.GetOrder(context.Background(), "pp-7")
	require.NoError(t, err)

	assert.Equal(t, "pp-7", order.OrderID)
	assert.Equal(t, models.PaymentStatusCompleted, order.Status)
	assert.Equal(t, 29.98, order.AmountPaid)
	assert.Equal(t, "USD", order.Currency)
}

func TestCreateOrderShippingPreference(t *testing.T) {
	var body createOrderBody
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "pp-9"})
	})

	c := newTestClient(srv)

	shipping := &models.Address{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Address1:    "1 Main St",
		City:        "Springfield",
		State:       "IL",
		Zip:         "62701",
		CountryCode: "us",
	}
	id, err := c.CreateOrder(context.Background(), 29.98, "USD", shipping)
	require.NoError(t, err)
	assert.Equal(t, "pp-9", id)

	assert.Equal(t, "CAPTURE", body.Intent)
	require.Len(t, body.PurchaseUnits, 1)
	assert.Equal(t, "29.98", body.PurchaseUnits[0].Amount.Value)
	require.NotNil(t, body.PurchaseUnits[0].Shipping)
	assert.Equal(t, "US", body.PurchaseUnits[0].Shipping.Address.CountryCode)
	assert.Equal(t, "Ada Lovelace", body.PurchaseUnits[0].Shipping.Name.FullName)
	assert.Equal(t, "SET_PROVIDED_ADDRESS", body.ApplicationContext.ShippingPreference)
}

func TestCreateOrderNoShippingWhenIncomplete(t *testing.T) {
	var body createOrderBody
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "pp-10"})
	})

	c := newTestClient(srv)

	// missing city: the shipping block must be omitted entirely
	shipping := &models.Address{Address1: "1 Main St", State: "IL", Zip: "62701", CountryCode: "US"}
	_, err := c.CreateOrder(context.Background(), 5.00, "USD", shipping)
	require.NoError(t, err)

	assert.Nil(t, body.PurchaseUnits[0].Shipping)
	assert.Equal(t, "NO_SHIPPING", body.ApplicationContext.ShippingPreference)
}

func TestVerifyWebhookSignature(t *testing.T) {
	var payload map[string]interface{}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/notifications/verify-webhook-signature", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_ = json.NewEncoder(w).Encode(map[string]string{"verification_status": "SUCCESS"})
	})

	c := newTestClient(srv)
	headers := map[string]string{
		"paypal-transmission-id":   "tid",
		"paypal-transmission-time": "now",
		"paypal-cert-url":          "https://example.com/cert",
		"paypal-auth-algo":         "SHA256withRSA",
		"paypal-transmission-sig":  "sig",
	}
	event := json.RawMessage(`{"id":"evt-1","event_type":"PAYMENT.CAPTURE.COMPLETED"}`)

	ok := c.VerifyWebhookSignature(context.Background(), headers, event)
	assert.True(t, ok)
	assert.Equal(t, "tid", payload["transmission_id"])
	assert.Equal(t, "wh-1", payload["webhook_id"])
}

func TestVerifyWebhookSignatureFailureReturnsFalse(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"verification_status": "FAILURE"})
	})

	c := newTestClient(srv)
	ok := c.VerifyWebhookSignature(context.Background(), map[string]string{}, json.RawMessage(`{}`))
	assert.False(t, ok)
}

func TestVerifyWebhookSignatureMissingWebhookID(t *testing.T) {
	c := NewClient("http://unused", "id", "secret", "", time.Second)
	ok := c.VerifyWebhookSignature(context.Background(), map[string]string{}, json.RawMessage(`{}`))
	assert.False(t, ok)
}
