package printify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"giftsip-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shops/store-1/products/P1.json", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "P1",
			"title": "Ceramic Mug 11oz",
			"variants": []map[string]interface{}{
				{"id": 1, "price": 1000, "is_enabled": true, "options": []int{10}},
			},
			"options": []map[string]interface{}{
				{"name": "Sizes", "type": "size", "values": []map[string]interface{}{
					{"id": 10, "title": "11oz"},
				}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "store-1", 5*time.Second)
	product, err := c.GetProduct(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, "P1", product.ID)
	require.Len(t, product.Variants, 1)
	assert.Equal(t, 1000, product.Variants[0].Price)
	assert.True(t, product.Variants[0].IsEnabled)
	require.Len(t, product.Options, 1)
	assert.Equal(t, "11oz", product.Options[0].Values[0].Title)
}

func TestGetProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "store-1", 5*time.Second)
	_, err := c.GetProduct(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSubmitOrder(t *testing.T) {
	var received models.FulfillmentOrder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shops/store-1/orders.json", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "po-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "store-1", 5*time.Second)
	order := &models.FulfillmentOrder{
		ExternalID:     "ext-1",
		ShippingMethod: 1,
		LineItems: []models.FulfillmentLineItem{
			{ProductID: "P1", VariantID: 1, Quantity: 2},
		},
		AddressTo: models.FulfillmentAddress{FirstName: "Ada", Country: "US"},
	}

	id, err := c.SubmitOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "po-1", id)
	assert.Equal(t, "ext-1", received.ExternalID)
	require.Len(t, received.LineItems, 1)
	assert.Equal(t, "P1", received.LineItems[0].ProductID)
}

func TestSubmitOrderDoesNotLeakUpstreamBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"secret internal detail"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "store-1", 5*time.Second)
	_, err := c.SubmitOrder(context.Background(), &models.FulfillmentOrder{ExternalID: "ext-1"})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret internal detail")
	assert.Contains(t, err.Error(), "422")
}

func TestSubmitOrderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "store-1", 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SubmitOrder(ctx, &models.FulfillmentOrder{ExternalID: "ext-1"})
	assert.Error(t, err)
}
