package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giftsip-api/config"
	"giftsip-api/internal/api"
	"giftsip-api/internal/guard"
	"giftsip-api/internal/paypal"
	"giftsip-api/internal/printify"
	"giftsip-api/internal/ratelimit"
	"giftsip-api/internal/service"
	"giftsip-api/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting giftsip api")

	tp, err := util.InitTracer("giftsip-api", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	orderGuard, webhookGuard := newGuards(cfg)

	printifyClient := printify.NewClient(
		cfg.Printify.APIBase, cfg.Printify.APIKey, cfg.Printify.StoreID, cfg.Printify.Timeout)
	paypalClient := paypal.NewClient(
		cfg.PayPal.APIBase, cfg.PayPal.ClientID, cfg.PayPal.Secret,
		cfg.PayPal.WebhookID, cfg.PayPal.Timeout)

	pricingService := service.NewPricingService(printifyClient)
	shippingService := service.NewShippingService(nil)
	orderService := service.NewOrderService(
		pricingService, shippingService, paypalClient, printifyClient,
		orderGuard, cfg.Printify.Timeout)

	limiter := ratelimit.NewLimiter()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		orderService, pricingService, shippingService, paypalClient,
		webhookGuard, limiter, cfg.Limits.OrderRateMax, cfg.Limits.OrderRateWindow)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// newGuards picks the idempotency stores: Redis when configured, else
// the process-local memory stores.
func newGuards(cfg *config.Config) (guard.Store, guard.Store) {
	if cfg.Redis.Addr == "" {
		return guard.NewMemoryStore(cfg.Limits.OrderKeyTTL),
			guard.NewMemoryStore(cfg.Limits.WebhookKeyTTL)
	}

	orderGuard, err := guard.NewRedisStore(
		cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "order", cfg.Limits.OrderKeyTTL)
	if err != nil {
		log.Printf("Redis unavailable, using in-memory idempotency: %v", err)
		return guard.NewMemoryStore(cfg.Limits.OrderKeyTTL),
			guard.NewMemoryStore(cfg.Limits.WebhookKeyTTL)
	}
	webhookGuard, err := guard.NewRedisStore(
		cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, "webhook", cfg.Limits.WebhookKeyTTL)
	if err != nil {
		log.Printf("Redis unavailable, using in-memory webhook dedup: %v", err)
		return orderGuard, guard.NewMemoryStore(cfg.Limits.WebhookKeyTTL)
	}
	log.Println("Redis idempotency stores connected")
	return orderGuard, webhookGuard
}
