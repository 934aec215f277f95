package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barekegnn/misrak-shemeta-backend/api/controllers"
	ordercontrollers "github.com/barekegnn/misrak-shemeta-backend/api/controllers/orders"
	webhookcontrollers "github.com/barekegnn/misrak-shemeta-backend/api/controllers/webhooks"
	"github.com/barekegnn/misrak-shemeta-backend/api/middleware"
	checkoutsvc "github.com/barekegnn/misrak-shemeta-backend/internal/checkout"
	"github.com/barekegnn/misrak-shemeta-backend/internal/notifications"
	"github.com/barekegnn/misrak-shemeta-backend/internal/orders"
	"github.com/barekegnn/misrak-shemeta-backend/internal/shops"
	chapawebhook "github.com/barekegnn/misrak-shemeta-backend/internal/webhooks/chapa"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/config"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/enums"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/redis"
)

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Checkout      checkoutsvc.Service
	OrdersRepo    orders.Repository
	Orders        orders.Service
	Shops         shops.Service
	Notifications notifications.Service
	ChapaWebhook  *chapawebhook.Service
	Metrics       prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	gatherer := params.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/chapa", webhookcontrollers.ChapaWebhook(params.ChapaWebhook, logg))
	})

	var idemStore redis.IdempotencyStore
	if params.Redis != nil {
		idemStore = params.Redis
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Post("/checkout", controllers.Checkout(params.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(params.OrdersRepo, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(params.OrdersRepo, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(params.Orders, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(params.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
			})
		})

		r.Route("/shop/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleShop), logg))
			r.Use(middleware.RequireShopContext(logg))
			r.Get("/balance", controllers.ShopBalance(params.Shops, logg))
			r.Get("/transactions", controllers.ShopLedger(params.Shops, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.ShopList(params.OrdersRepo, logg))
				r.Post("/{orderId}/dispatch", ordercontrollers.Dispatch(params.Orders, logg))
			})
		})

		r.Route("/runner/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleRunner), logg))
			r.Route("/orders", func(r chi.Router) {
				r.Post("/{orderId}/arrive", ordercontrollers.MarkArrived(params.Orders, logg))
				r.Post("/{orderId}/complete", ordercontrollers.Complete(params.Orders, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
			r.Use(middleware.RequireAdmin(params.Config.Admin, logg))
			r.Route("/shops", func(r chi.Router) {
				r.Post("/{shopId}/adjust", controllers.AdminAdjustShopBalance(params.Shops, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(params.Orders, logg))
			})
		})
	})

	return r
}
