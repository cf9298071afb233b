package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swanstudios/training-storefront/api/controllers"
	cartcontrollers "github.com/swanstudios/training-storefront/api/controllers/cart"
	"github.com/swanstudios/training-storefront/api/middleware"
	cartsvc "github.com/swanstudios/training-storefront/internal/cart"
	checkoutsvc "github.com/swanstudios/training-storefront/internal/checkout"
	"github.com/swanstudios/training-storefront/pkg/config"
	"github.com/swanstudios/training-storefront/pkg/db"
	"github.com/swanstudios/training-storefront/pkg/logger"
	"github.com/swanstudios/training-storefront/pkg/redis"
)

// NewRouter wires the HTTP surface: health probes, metrics, and the
// authenticated cart/checkout routes.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/carts", func(r chi.Router) {
			r.Get("/active", cartcontrollers.ActiveCart(cartService, logg))

			r.Route("/{cartID}", func(r chi.Router) {
				r.Get("/", cartcontrollers.FetchCart(cartService, logg))
				r.Post("/items", cartcontrollers.AddItem(cartService, logg))
				r.Patch("/items/{itemID}", cartcontrollers.UpdateItemQuantity(cartService, logg))
				r.Delete("/items/{itemID}", cartcontrollers.RemoveItem(cartService, logg))

				r.Post("/checkout", controllers.CheckoutAuthorize(checkoutService, cartService, logg))
				r.Post("/payment-result", controllers.CheckoutPaymentResult(checkoutService, logg))
			})
		})
	})

	return r
}
