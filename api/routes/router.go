package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirelletran/fangallery-backend/api/controllers"
	"github.com/mirelletran/fangallery-backend/api/middleware"
	"github.com/mirelletran/fangallery-backend/internal/auth"
	"github.com/mirelletran/fangallery-backend/internal/banners"
	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/pkg/auth/session"
	"github.com/mirelletran/fangallery-backend/pkg/config"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
	"github.com/mirelletran/fangallery-backend/pkg/metrics"
	"github.com/mirelletran/fangallery-backend/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       controllers.Pinger
	RedisClient    *redis.Client
	StoragePinger  controllers.Pinger
	SessionChecker session.AccessSessionChecker
	AuthService    auth.Service
	ContentService content.Service
	BannerService  banners.Service
	HTTPMetrics    *metrics.HTTPMetrics
	Gatherer       prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, pingerOrNil(deps.RedisClient), deps.StoragePinger))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/gallery", controllers.Gallery(deps.ContentService, logg))
		r.Get("/banners", controllers.Banners(deps.BannerService, logg))
		r.Get("/skills", controllers.Skills(deps.ContentService, logg))
		r.Get("/leaks", controllers.Leaks(deps.ContentService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.RedisClient, logg)).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, deps.RedisClient, logg)).Post("/verify", controllers.AuthVerify(deps.AuthService, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RedisClient, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
			r.With(middleware.Auth(cfg.JWT, deps.SessionChecker, logg)).Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))

			r.Route("/content", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateContent(deps.ContentService, cfg.Assets.MaxUploadMB, logg))
				r.Get("/{id}", controllers.AdminGetContent(deps.ContentService, logg))
				r.Patch("/{id}", controllers.AdminUpdateContent(deps.ContentService, cfg.Assets.MaxUploadMB, logg))
				r.Delete("/{id}", controllers.AdminDeleteContent(deps.ContentService, logg))
			})

			r.Route("/banners", func(r chi.Router) {
				r.Post("/", controllers.AdminReorderBanners(deps.BannerService, logg))
				r.Delete("/{id}", controllers.AdminDeleteBanner(deps.ContentService, logg))
			})
		})
	})

	return r
}

func pingerOrNil(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
