package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cheroliv/blogger/internal/metrics"
	"github.com/cheroliv/blogger/internal/middleware"
	"github.com/cheroliv/blogger/internal/service"
)

// RouterConfig holds everything NewRouter wires into the HTTP surface.
type RouterConfig struct {
	Logger        *slog.Logger
	AppName       string
	Version       string
	IsDevelopment bool

	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	RateLimit          middleware.RateLimitConfig

	People   *service.PersonService
	Articles *service.ArticleService
	Audits   AuditLister
	Health   *HealthHandler
	Metrics  metrics.Snapshotter
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthHandler("store", nil, nil)
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = middleware.DefaultSecurityConfig().MaxRequestBodySize
	}

	h := New(cfg.AppName, cfg.Version)
	people := NewPersonHandler(cfg.People, cfg.AppName, logger)
	articles := NewArticleHandler(cfg.Articles, cfg.AppName, logger)
	admin := NewAdminHandler(cfg.Audits, cfg.AppName, logger)
	metricsHandler := NewMetricsHandler(cfg.Metrics)

	corsCfg := middleware.DefaultCORSConfig(cfg.AppName)
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Operational endpoints
	r.Get("/", h.Info)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/management/audits", admin.ListAudits)

	rateLimitCfg := cfg.RateLimit
	rateLimitCfg.Logger = logger

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Use(middleware.RequireJSON)

		r.Get("/coucou", h.Coucou)
		r.Route("/"+service.PeopleCollection, people.Routes)
		r.Route("/"+service.ArticlesCollection, articles.Routes)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
