package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/estore-backend/api/controllers"
	"github.com/angelmondragon/estore-backend/api/middleware"
	"github.com/angelmondragon/estore-backend/internal/cart"
	"github.com/angelmondragon/estore-backend/internal/orders"
	"github.com/angelmondragon/estore-backend/pkg/config"
	"github.com/angelmondragon/estore-backend/pkg/logger"
	"github.com/angelmondragon/estore-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/estore-backend/pkg/redis"
)

// RedisStore is the Redis surface used by the HTTP middleware chain.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type CatalogService interface {
	controllers.CatalogReader
	controllers.ItemDeleter
}

type InventoryService interface {
	controllers.AvailabilityReader
	controllers.StockWriter
}

// Services groups the domain services exposed over HTTP.
type Services struct {
	Cart      cart.Service
	Orders    orders.Service
	Catalog   CatalogService
	Inventory InventoryService
	Shipping  controllers.TrackingUpdater
}

// Observability carries the readiness probes and the Prometheus registry
// served on /metrics.
type Observability struct {
	Pingers     map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, store RedisStore, obs Observability, svcs Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientIP(),
		middleware.Logging(logg),
		middleware.Metrics(obs.HTTPMetrics),
		middleware.CORS(cfg.App.PublicURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, obs.Pingers))
	})

	gatherer := obs.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	orderPolicy := middleware.NewRateLimitPolicy("orders", cfg.RateLimit.OrderWindow, cfg.RateLimit.OrdersPerIP)
	if !cfg.RateLimit.OrdersEnabled {
		orderPolicy = middleware.NewRateLimitPolicy("orders", 0, 0)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartContext(logg))
		if store != nil {
			r.Use(middleware.Idempotency(store, logg))
		}

		r.Route("/cart", func(r chi.Router) {
			r.Post("/", controllers.CartResolve(svcs.Cart, logg))
			r.Get("/", controllers.CartResolve(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Patch("/items/{cartItemId}", controllers.CartAdjustItem(svcs.Cart, logg))
			r.Delete("/items/{cartItemId}", controllers.CartRemoveItem(svcs.Cart, logg))
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemsList(svcs.Catalog, logg))
			r.Get("/types", controllers.ItemTypesList(svcs.Catalog, logg))
			r.Get("/{itemId}", controllers.ItemDetail(svcs.Catalog, logg))
			r.Get("/{itemId}/sizes", controllers.ItemSizes(svcs.Catalog, logg))
		})
		r.Get("/inventory/{variantId}/availability", controllers.InventoryAvailability(svcs.Inventory, logg))

		r.Route("/orders", func(r chi.Router) {
			if store != nil {
				r.With(middleware.RateLimitByIP(orderPolicy, store, logg)).Post("/", controllers.OrderCreate(svcs.Orders, logg))
			} else {
				r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			}
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Get("/prefill", controllers.OrderPrefill(svcs.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
			r.Patch("/{orderId}", controllers.OrderUpdateShipping(svcs.Orders, logg))
			r.Post("/{orderId}/confirm", controllers.OrderConfirm(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(svcs.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireAdminKey(cfg.Admin.APIKey, logg))
		if store != nil {
			r.Use(middleware.Idempotency(store, logg))
		}

		r.Get("/orders/{orderId}", controllers.AdminOrderDetail(svcs.Orders, logg))
		r.Post("/orders/{orderId}/transition", controllers.AdminOrderTransition(svcs.Orders, logg))
		r.Put("/orders/{orderId}/shipping", controllers.AdminUpdateTracking(svcs.Shipping, logg))
		r.Put("/inventory/{variantId}", controllers.AdminSetInventory(svcs.Inventory, logg))
		r.Delete("/items/{itemId}", controllers.AdminDeleteItem(svcs.Catalog, logg))
	})

	return r
}
