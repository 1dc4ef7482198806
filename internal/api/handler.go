package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"giftsip-api/internal/guard"
	"giftsip-api/internal/models"
	"giftsip-api/internal/paypal"
	"giftsip-api/internal/ratelimit"
	"giftsip-api/internal/service"
	"giftsip-api/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OrderCreator runs the checkout workflow.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResponse, error)
}

// Pricer derives authoritative cart pricing.
type Pricer interface {
	Price(ctx context.Context, items []models.CartLine) (*models.PriceResult, error)
}

// ShippingQuoter derives authoritative shipping cost.
type ShippingQuoter interface {
	Quote(ctx context.Context, items []models.CartLine, dest models.Address) (*models.ShippingQuote, error)
}

// PaymentGateway is the processor-facing surface used by the HTTP layer.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string, shipping *models.Address) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (json.RawMessage, error)
	VerifyWebhookSignature(ctx context.Context, headers map[string]string, event json.RawMessage) bool
}

// Handler contains HTTP handlers
type Handler struct {
	orders       OrderCreator
	pricing      Pricer
	shipping     ShippingQuoter
	gateway      PaymentGateway
	webhookGuard guard.Store
	limiter      *ratelimit.Limiter
	rateMax      int
	rateWindow   time.Duration
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders OrderCreator,
	pricing Pricer,
	shipping ShippingQuoter,
	gateway PaymentGateway,
	webhookGuard guard.Store,
	limiter *ratelimit.Limiter,
	rateMax int,
	rateWindow time.Duration,
) *Handler {
	return &Handler{
		orders:       orders,
		pricing:      pricing,
		shipping:     shipping,
		gateway:      gateway,
		webhookGuard: webhookGuard,
		limiter:      limiter,
		rateMax:      rateMax,
		rateWindow:   rateWindow,
		logger:       util.NamedLogger("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/price-check", h.priceCheck)
		v1.POST("/shipping-quote", h.shippingQuote)
		v1.POST("/orders", h.createOrder)
		v1.POST("/paypal/orders", h.createPayPalOrder)
		v1.POST("/paypal/orders/:id/capture", h.capturePayPalOrder)
		v1.POST("/webhooks/paypal", h.paypalWebhook)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type priceCheckRequest struct {
	Items []models.CartLine `json:"items"`
}

// priceCheck re-derives cart pricing from catalog data.
func (h *Handler) priceCheck(c *gin.Context) {
	var req priceCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.pricing.Price(c.Request.Context(), req.Items)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type shippingQuoteRequest struct {
	Items   []models.CartLine `json:"items"`
	Address models.Address    `json:"address"`
}

// shippingQuote computes a standard-shipping quote for a destination.
func (h *Handler) shippingQuote(c *gin.Context) {
	var req shippingQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	quote, err := h.shipping.Quote(c.Request.Context(), req.Items, req.Address)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shipping": quote})
}

// createOrder handles checkout: rate-limited per client IP.
func (h *Handler) createOrder(c *gin.Context) {
	ip := clientIP(c)
	if !h.limiter.Allow(ip, "create-order", h.rateMax, h.rateWindow) {
		util.RateLimitedTotal.WithLabelValues("create-order").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		return
	}

	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.ExternalID == "" {
		req.ExternalID = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type createPayPalOrderRequest struct {
	Items           []models.CartLine `json:"items"`
	ShippingAddress *models.Address   `json:"shipping_address,omitempty"`
	ShippingCost    float64           `json:"shipping_cost,omitempty"`
}

// createPayPalOrder prices the cart server-side and creates a processor
// order for subtotal plus the quoted shipping cost.
func (h *Handler) createPayPalOrder(c *gin.Context) {
	var req createPayPalOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items"})
		return
	}

	priced, err := h.pricing.Price(c.Request.Context(), req.Items)
	if err != nil {
		h.renderError(c, err)
		return
	}

	total := priced.Subtotal + req.ShippingCost
	orderID, err := h.gateway.CreateOrder(c.Request.Context(), total, priced.Currency, req.ShippingAddress)
	if err != nil {
		h.logger.Error("PayPal order creation failed", zap.Error(err))
		if errors.Is(err, paypal.ErrMissingCredentials) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment gateway not configured"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment order creation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": orderID})
}

// capturePayPalOrder finalizes an approved payment.
func (h *Handler) capturePayPalOrder(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order id required"})
		return
	}

	capture, err := h.gateway.CaptureOrder(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("PayPal capture failed",
			zap.String("paypal_order_id", orderID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Capture failed"})
		return
	}
	c.Data(http.StatusOK, "application/json", capture)
}

// paypalWebhook verifies and handles processor webhooks. Verified
// duplicates return 200 so the processor stops retrying; internal
// failures return 500 so it retries later.
func (h *Handler) paypalWebhook(c *gin.Context) {
	headers := make(map[string]string, len(paypal.WebhookHeaders))
	for _, name := range paypal.WebhookHeaders {
		headers[name] = c.GetHeader(name)
	}
	if headers["paypal-transmission-id"] == "" {
		util.WebhookEventsTotal.WithLabelValues("missing_headers").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing PayPal headers"})
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.ID == "" || event.EventType == "" {
		util.WebhookEventsTotal.WithLabelValues("invalid_body").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook body"})
		return
	}

	duplicate, err := h.webhookGuard.Seen(c.Request.Context(), event.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if duplicate {
		util.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
		return
	}

	if !h.gateway.VerifyWebhookSignature(c.Request.Context(), headers, raw) {
		util.WebhookEventsTotal.WithLabelValues("invalid_signature").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	// No persistence: handling is logs and metrics only.
	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		h.logger.Info("Checkout order approved", zap.String("event_id", event.ID))
	case "PAYMENT.CAPTURE.COMPLETED":
		h.logger.Info("Payment capture completed", zap.String("event_id", event.ID))
	default:
		h.logger.Info("Unhandled webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.EventType))
	}

	util.WebhookEventsTotal.WithLabelValues("handled").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// renderError maps workflow errors onto HTTP statuses. Error bodies stay
// short; upstream detail is logged server-side only.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMissingIdentifiers),
		errors.Is(err, service.ErrUnavailableItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Duplicate order attempt"})
	case errors.Is(err, service.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment not completed"})
	case errors.Is(err, service.ErrAmountMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "Payment amount mismatch"})
	case errors.Is(err, service.ErrUpstream):
		h.logger.Error("Upstream failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service failed"})
	default:
		h.logger.Error("Order request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := c.GetHeader("X-Real-IP"); real != "" {
		return real
	}
	return c.ClientIP()
}

// requestIDMiddleware tags every request with an id for log correlation.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
