package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dcastellanos/storefront-backend/api/controllers"
	"github.com/dcastellanos/storefront-backend/api/middleware"
	"github.com/dcastellanos/storefront-backend/internal/commissions"
	"github.com/dcastellanos/storefront-backend/internal/orders"
	"github.com/dcastellanos/storefront-backend/internal/products"
	"github.com/dcastellanos/storefront-backend/internal/vendors"
	"github.com/dcastellanos/storefront-backend/pkg/config"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	registry *prometheus.Registry,
	ordersSvc *orders.Service,
	commissionsSvc *commissions.Service,
	vendorsSvc *vendors.Service,
	productsSvc *products.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/orders/track/{orderId}", controllers.TrackOrder(ordersSvc, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersSvc, logg))
			r.Get("/", controllers.ListOrders(ordersSvc, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersSvc, logg))
			r.Patch("/{orderId}/cancel", controllers.CancelOrder(ordersSvc, logg))
			r.Post("/{orderId}/return", controllers.ReturnOrder(ordersSvc, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/{productId}", controllers.ProductDetail(productsSvc, logg))
			r.Post("/{productId}/quote", controllers.QuoteProduct(productsSvc, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", controllers.ListVendors(vendorsSvc, logg))
			r.Get("/{vendorId}", controllers.VendorDetail(vendorsSvc, logg))
			r.Get("/{vendorId}/commissions", controllers.VendorCommissions(commissionsSvc, logg))
			r.Get("/{vendorId}/earnings", controllers.VendorEarnings(commissionsSvc, logg))
			r.Get("/{vendorId}/settlements", controllers.VendorSettlements(commissionsSvc, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/commissions", func(r chi.Router) {
			r.Get("/pending", controllers.PendingCommissions(commissionsSvc))
			r.Post("/{commissionId}/settle", controllers.SettleCommission(commissionsSvc, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Patch("/{orderId}/status", controllers.UpdateOrderStatus(ordersSvc, logg))
		})
		r.Put("/vendors/{vendorId}", controllers.UpsertVendor(vendorsSvc, logg))
	})

	return r
}
