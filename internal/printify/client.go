package printify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"giftsip-api/internal/models"
	"giftsip-api/internal/util"

	"go.uber.org/zap"
)

const userAgent = "GiftSip-Go"

// Variant is one purchasable configuration of a product. Price is in
// integer minor currency units (cents).
type Variant struct {
	ID        int    `json:"id"`
	Price     int    `json:"price"`
	IsEnabled bool   `json:"is_enabled"`
	Title     string `json:"title"`
	Options   []int  `json:"options"`
}

// OptionValue maps an option value id to its display title.
type OptionValue struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// ProductOption describes one option axis (size, color, ...).
type ProductOption struct {
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Values []OptionValue `json:"values"`
}

// Product is the catalog view of a product.
type Product struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Variants []Variant       `json:"variants"`
	Options  []ProductOption `json:"options"`
}

// Client talks to the Printify catalog and fulfillment API.
type Client struct {
	apiBase string
	apiKey  string
	storeID string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewClient creates a Printify client with a bounded request timeout.
func NewClient(apiBase, apiKey, storeID string, timeout time.Duration) *Client {
	return &Client{
		apiBase: apiBase,
		apiKey:  apiKey,
		storeID: storeID,
		httpc:   &http.Client{Timeout: timeout},
		logger:  util.NamedLogger("printify"),
	}
}

// GetProduct fetches full variant and option metadata for one product.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	url := fmt.Sprintf("%s/shops/%s/products/%s.json", c.apiBase, c.storeID, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product %s fetch failed: %w", productID, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product %s fetch failed (%d)", productID, res.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(res.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("product %s decode failed: %w", productID, err)
	}
	return &product, nil
}

// SubmitOrder places a fulfillment order and returns its id. Upstream
// error bodies are logged server-side and never returned to the caller.
func (c *Client) SubmitOrder(ctx context.Context, order *models.FulfillmentOrder) (string, error) {
	url := fmt.Sprintf("%s/shops/%s/orders.json", c.apiBase, c.storeID)

	body, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fulfillment order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fulfillment order failed: %w", err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Error("Fulfillment order rejected",
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", truncate(raw, 1000)))
		return "", fmt.Errorf("fulfillment order failed (%d)", res.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("fulfillment response decode failed: %w", err)
	}
	return created.ID, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
