package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshop/storefront/api/controllers"
	"github.com/eshop/storefront/api/middleware"
	"github.com/eshop/storefront/internal/catalog"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/internal/storefront"
	"github.com/eshop/storefront/pkg/auth/session"
	"github.com/eshop/storefront/pkg/config"
	"github.com/eshop/storefront/pkg/db"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	sessions session.AccessSessionChecker,
	identityService identity.Provider,
	catalogService catalog.Service,
	ordersService orders.Service,
	tabs *storefront.Registry,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/pages/{slug}", controllers.PublicPage(cfg.App, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(catalogService, logg))
		r.Get("/categories", controllers.ProductCategories(catalogService, logg))
		r.Get("/featured", controllers.ProductFeatured(catalogService, logg))
		r.Get("/{productId}", controllers.ProductDetail(catalogService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", controllers.AuthSignup(identityService, tabs, logg))
		r.Post("/login", controllers.AuthLogin(identityService, tabs, logg))
		r.Post("/logout", controllers.AuthLogout(identityService, tabs, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(identityService, tabs, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, tabs, identityService, logg))

		r.Get("/me", controllers.Profile(ordersService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(logg))
			r.Delete("/", controllers.CartClear(logg))
			r.Post("/items", controllers.CartAddItem(catalogService, logg))
			r.Put("/items/{productId}", controllers.CartUpdateItem(logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutState(logg))
			r.Post("/next", controllers.CheckoutNext(logg))
			r.Post("/back", controllers.CheckoutBack(logg))
			r.Put("/address", controllers.CheckoutAddress(logg))
			r.Put("/payment", controllers.CheckoutPayment(logg))
			r.Post("/submit", controllers.CheckoutSubmit(logg))
			r.Post("/payment/callback", controllers.CheckoutPaymentCallback(logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, tabs, identityService, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Get("/v1/orders", controllers.AdminOrdersList(ordersService, logg))
	})

	return r
}
