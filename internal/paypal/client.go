package paypal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"giftsip-api/internal/models"
	"giftsip-api/internal/util"

	"go.uber.org/zap"
)

const userAgent = "GiftSip-Go"

// ErrMissingCredentials indicates the client id or secret is not
// configured. Operator-facing, not a caller error.
var ErrMissingCredentials = errors.New("missing paypal client id or secret")

// Client talks to the PayPal REST API.
type Client struct {
	apiBase   string
	clientID  string
	secret    string
	webhookID string
	httpc     *http.Client
	logger    *zap.Logger
}

// NewClient creates a PayPal client with a bounded request timeout.
func NewClient(apiBase, clientID, secret, webhookID string, timeout time.Duration) *Client {
	return &Client{
		apiBase:   apiBase,
		clientID:  clientID,
		secret:    secret,
		webhookID: webhookID,
		httpc:     &http.Client{Timeout: timeout},
		logger:    util.NamedLogger("paypal"),
	}
}

// AccessToken performs the client-credentials OAuth exchange. Tokens are
// not cached; every call fetches a fresh one.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.secret == "" {
		return "", ErrMissingCredentials
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.secret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal auth failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal auth failed (%d)", res.StatusCode)
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("paypal auth decode failed: %w", err)
	}
	return data.AccessToken, nil
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type shippingName struct {
	FullName string `json:"full_name"`
}

type shippingAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AdminArea2   string `json:"admin_area_2"`
	AdminArea1   string `json:"admin_area_1"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
}

type shippingBlock struct {
	Name    shippingName    `json:"name"`
	Address shippingAddress `json:"address"`
}

type purchaseUnit struct {
	Amount   orderAmount    `json:"amount"`
	Shipping *shippingBlock `json:"shipping,omitempty"`
}

type createOrderBody struct {
	Intent             string         `json:"intent"`
	PurchaseUnits      []purchaseUnit `json:"purchase_units"`
	ApplicationContext struct {
		ShippingPreference string `json:"shipping_preference"`
	} `json:"application_context"`
}

// CreateOrder creates a processor-side CAPTURE order for the given
// authoritative amount. The shipping block is included only when the
// address carries every required field; its presence switches the
// processor between "use exactly this address" and "no shipping".
func (c *Client) CreateOrder(ctx context.Context, amount float64, currency string, shipping *models.Address) (string, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	var block *shippingBlock
	if shipping != nil {
		cc := strings.ToUpper(shipping.CountryCode)
		if shipping.Address1 != "" && shipping.City != "" && shipping.State != "" &&
			shipping.Zip != "" && cc != "" {
			block = &shippingBlock{
				Name: shippingName{
					FullName: strings.TrimSpace(shipping.FirstName + " " + shipping.LastName),
				},
				Address: shippingAddress{
					AddressLine1: shipping.Address1,
					AdminArea2:   shipping.City,
					AdminArea1:   shipping.State,
					PostalCode:   shipping.Zip,
					CountryCode:  cc,
				},
			}
		}
	}

	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: orderAmount{
				CurrencyCode: currency,
				Value:        strconv.FormatFloat(amount, 'f', 2, 64),
			},
			Shipping: block,
		}},
	}
	if block != nil {
		body.ApplicationContext.ShippingPreference = "SET_PROVIDED_ADDRESS"
	} else {
		body.ApplicationContext.ShippingPreference = "NO_SHIPPING"
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v2/checkout/orders", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal create order failed: %w", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Error("PayPal create order rejected",
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", truncate(respBody, 800)))
		return "", fmt.Errorf("paypal create order failed (%d)", res.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("paypal create order decode failed: %w", err)
	}
	return created.ID, nil
}

// CaptureOrder finalizes payment for an approved order. The capture
// endpoint rejects an empty JSON object, so the request must carry no
// body at all.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	if orderID == "" {
		return nil, errors.New("orderID required")
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v2/checkout/orders/"+orderID+"/capture", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal capture failed: %w", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Error("PayPal capture rejected",
			zap.String("paypal_order_id", orderID),
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", truncate(respBody, 800)))
		return nil, fmt.Errorf("paypal capture failed (%d)", res.StatusCode)
	}
	return json.RawMessage(respBody), nil
}

// GetOrder retrieves order status and the paid amount of the first
// purchase unit.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	if orderID == "" {
		return nil, errors.New("orderID required")
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiBase+"/v2/checkout/orders/"+orderID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal get order failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paypal get order failed (%d)", res.StatusCode)
	}

	var data struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Amount struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"amount"`
		} `json:"purchase_units"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("paypal get order decode failed: %w", err)
	}

	order := &models.PaymentOrder{
		OrderID: data.ID,
		Status:  data.Status,
	}
	if len(data.PurchaseUnits) > 0 {
		order.Currency = data.PurchaseUnits[0].Amount.CurrencyCode
		order.AmountPaid, _ = strconv.ParseFloat(data.PurchaseUnits[0].Amount.Value, 64)
	}
	return order, nil
}

// WebhookHeaders are the five processor signature headers, keyed by
// lowercase header name.
var WebhookHeaders = []string{
	"paypal-transmission-id",
	"paypal-transmission-time",
	"paypal-cert-url",
	"paypal-auth-algo",
	"paypal-transmission-sig",
}

// VerifyWebhookSignature re-validates an inbound webhook against the
// processor's verification endpoint. It returns false, never an error,
// on any verification failure so callers can reject cleanly.
func (c *Client) VerifyWebhookSignature(ctx context.Context, headers map[string]string, event json.RawMessage) bool {
	if c.webhookID == "" {
		c.logger.Error("Webhook verification skipped: missing webhook id")
		return false
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		c.logger.Error("Webhook verification auth failed", zap.Error(err))
		return false
	}

	payload := map[string]interface{}{
		"transmission_id":   headers["paypal-transmission-id"],
		"transmission_time": headers["paypal-transmission-time"],
		"cert_url":          headers["paypal-cert-url"],
		"auth_algo":         headers["paypal-auth-algo"],
		"transmission_sig":  headers["paypal-transmission-sig"],
		"webhook_id":        c.webhookID,
		"webhook_event":     event,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/notifications/verify-webhook-signature", bytes.NewReader(raw))
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Error("Webhook verification request failed", zap.Error(err))
		return false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		c.logger.Error("Webhook verification rejected", zap.Int("status", res.StatusCode))
		return false
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return false
	}
	return result.VerificationStatus == "SUCCESS"
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
