package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tundeabiodun/handyfix-backend/api/controllers"
	"github.com/tundeabiodun/handyfix-backend/api/middleware"
	"github.com/tundeabiodun/handyfix-backend/internal/auth"
	"github.com/tundeabiodun/handyfix-backend/internal/ledger"
	"github.com/tundeabiodun/handyfix-backend/internal/marketplace"
	"github.com/tundeabiodun/handyfix-backend/internal/orders"
	"github.com/tundeabiodun/handyfix-backend/internal/users"
	"github.com/tundeabiodun/handyfix-backend/pkg/config"
	"github.com/tundeabiodun/handyfix-backend/pkg/db"
	"github.com/tundeabiodun/handyfix-backend/pkg/logger"
	"github.com/tundeabiodun/handyfix-backend/pkg/metrics"
	"github.com/tundeabiodun/handyfix-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics

	MetricsHandler http.Handler

	AuthService        auth.Service
	UsersService       users.Service
	LedgerService      ledger.Service
	OrdersService      orders.Service
	MarketplaceService marketplace.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.MetricsHandler != nil {
		r.Handle("/metrics", p.MetricsHandler)
	}

	// uploaded photos are served as static files in this deployment
	uploadsPrefix := cfg.Uploads.PublicBaseURL
	r.Handle(uploadsPrefix+"/*", http.StripPrefix(uploadsPrefix+"/", http.FileServer(http.Dir(cfg.Uploads.Dir))))

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/services", controllers.ServicesCatalog())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/me", func(r chi.Router) {
			r.Get("/", controllers.MeProfile(p.UsersService, logg))
			r.Post("/avatar", controllers.MeAvatar(p.UsersService, logg))
			r.Get("/transactions", controllers.MeTransactions(p.LedgerService, logg))
		})

		r.Put("/providers/me", controllers.ProviderProfileUpdate(p.UsersService, logg))

		r.Post("/wallet/topup", controllers.WalletTopup(p.LedgerService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(p.OrdersService, logg))
			r.Get("/", controllers.OrderListMine(p.OrdersService, logg))
			r.Get("/marketplace", controllers.MarketplaceList(p.MarketplaceService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(p.OrdersService, logg))
				r.Post("/accept", controllers.OrderAccept(p.OrdersService, logg))
				r.Post("/confirm-price", controllers.OrderConfirmPrice(p.OrdersService, logg))
				r.Post("/start", controllers.OrderStart(p.OrdersService, logg))
				r.Post("/complete", controllers.OrderComplete(p.OrdersService, logg))
				r.Post("/status", controllers.OrderSetStatus(p.OrdersService, logg))
				r.Post("/rate", controllers.OrderRate(p.OrdersService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Get("/users", controllers.AdminListUsers(p.UsersService, logg))
		r.Get("/orders", controllers.AdminListOrders(p.OrdersService, logg))
		r.Post("/wallet/adjust", controllers.AdminWalletAdjust(p.LedgerService, logg))
	})

	return r
}
