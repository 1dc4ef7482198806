package models

// CartLine is one (product, variant, quantity) entry submitted by a client.
// Client-supplied prices are never accepted; only identifiers and quantity
// survive into server-side processing.
type CartLine struct {
	CartID       string `json:"cart_id,omitempty"`
	ProductID    string `json:"product_id" binding:"required"`
	VariantID    int    `json:"variant_id" binding:"required"`
	Quantity     int    `json:"quantity"`
	Title        string `json:"title,omitempty"`
	VariantTitle string `json:"variant_title,omitempty"`
}

// Line unavailability reasons
const (
	ReasonProductNotFound = "PRODUCT_NOT_FOUND"
	ReasonVariantNotFound = "VARIANT_NOT_FOUND"
	ReasonVariantDisabled = "VARIANT_DISABLED"
	ReasonMissingPrice    = "MISSING_PRICE"
)

// PricedLine is the server-derived price for a single cart line.
type PricedLine struct {
	CartID      string  `json:"cart_id,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	Unavailable bool    `json:"unavailable"`
	Reason      string  `json:"reason,omitempty"`
	SizeTitle   string  `json:"size_title,omitempty"`
	ColorTitle  string  `json:"color_title,omitempty"`
}

// PriceResult is the authoritative pricing of a cart.
type PriceResult struct {
	Currency string       `json:"currency"`
	Subtotal float64      `json:"subtotal"`
	Lines    []PricedLine `json:"lines"`
}

// Address is a checkout destination. Country may be an ISO2 code or a
// common full name; it is normalized before use.
type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Shipping regions
const (
	RegionUS   = "US"
	RegionCA   = "CA"
	RegionGB   = "GB"
	RegionEU   = "EU"
	RegionAUNZ = "AU_NZ"
	RegionROW  = "ROW"
)

// ShippingQuote is a server-computed standard-shipping cost for a cart
// and destination. Currency is always USD regardless of destination.
type ShippingQuote struct {
	Method        string  `json:"method"`
	Cost          float64 `json:"cost"`
	Currency      string  `json:"currency"`
	EstimatedDays string  `json:"estimated_days"`
	Region        string  `json:"region"`
	CountryCode   string  `json:"country_code"`
}

// OrderRequest is one checkout attempt. Consumed once; never persisted.
type OrderRequest struct {
	Email             string     `json:"email"`
	Phone             string     `json:"phone,omitempty"`
	Shipping          Address    `json:"shipping"`
	Items             []CartLine `json:"items"`
	ExternalID        string     `json:"external_id,omitempty"`
	ShippingMethod    int        `json:"shipping_method,omitempty"`
	RecomputeShipping *bool      `json:"recompute_shipping,omitempty"`
	ShippingCost      float64    `json:"shipping_cost,omitempty"`
	PayPalOrderID     string     `json:"paypal_order_id,omitempty"`
}

// OrderResponse reports a placed fulfillment order.
type OrderResponse struct {
	OK                 bool    `json:"ok"`
	FulfillmentOrderID string  `json:"fulfillment_order_id"`
	Subtotal           float64 `json:"subtotal"`
	ShippingCost       float64 `json:"shipping_cost"`
	Total              float64 `json:"total"`
}

// Payment processor order statuses
const (
	PaymentStatusCreated   = "CREATED"
	PaymentStatusApproved  = "APPROVED"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusVoided    = "VOIDED"
)

// PaymentOrder is the processor's view of a payment, treated as ground
// truth for "was this paid".
type PaymentOrder struct {
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	AmountPaid float64 `json:"amount_paid"`
	Currency   string  `json:"currency"`
}

// FulfillmentLineItem is one line of a fulfillment order payload, built
// strictly from server-validated identifiers.
type FulfillmentLineItem struct {
	ProductID  string `json:"product_id"`
	VariantID  int    `json:"variant_id"`
	Quantity   int    `json:"quantity"`
	ExternalID string `json:"external_id,omitempty"`
}

// FulfillmentOrder is the payload sent to the fulfillment API.
type FulfillmentOrder struct {
	ExternalID               string                `json:"external_id"`
	Label                    string                `json:"label,omitempty"`
	LineItems                []FulfillmentLineItem `json:"line_items"`
	ShippingMethod           int                   `json:"shipping_method"`
	SendShippingNotification bool                  `json:"send_shipping_notification"`
	AddressTo                FulfillmentAddress    `json:"address_to"`
}

// FulfillmentAddress is the destination block of a fulfillment order.
type FulfillmentAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Region    string `json:"region"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
}

// WebhookEvent is the minimal shape of an inbound processor webhook.
type WebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
}
