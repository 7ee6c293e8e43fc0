// Package main is the entrypoint for the blogger API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/cheroliv/blogger/internal/audit"
	"github.com/cheroliv/blogger/internal/cache"
	"github.com/cheroliv/blogger/internal/config"
	"github.com/cheroliv/blogger/internal/events"
	"github.com/cheroliv/blogger/internal/handler"
	"github.com/cheroliv/blogger/internal/metrics"
	"github.com/cheroliv/blogger/internal/middleware"
	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/repository"
	"github.com/cheroliv/blogger/internal/repository/memdb"
	"github.com/cheroliv/blogger/internal/server"
	"github.com/cheroliv/blogger/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// auditStore persists and lists audit events.
type auditStore interface {
	audit.Store
	handler.AuditLister
}

// backend is the selected persistence layer.
type backend struct {
	name     string
	people   service.Store[*model.Person]
	articles service.Store[*model.Article]
	tx       service.Transactor
	audits   auditStore
	health   handler.HealthChecker
	close    func()
}

func main() {
	os.Exit(run(context.Background()))
}

// run wires and serves the API, returning the process exit code. Deferred
// cleanup runs before main exits.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := initLogger(cfg)

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return 1
	}
	defer store.close()

	recorder := metrics.NewInMemory()
	personDeps := service.Deps{
		Metrics:         recorder,
		Logger:          logger,
		DefaultPageSize: cfg.PageDefaultSize,
		MaxPageSize:     cfg.PageMaxSize,
	}
	articleDeps := personDeps

	routerCfg := handler.RouterConfig{
		Logger:             logger,
		AppName:            cfg.AppName,
		Version:            version,
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Audits:             store.audits,
		Metrics:            recorder,
	}

	var (
		cacheClient  *cache.Cache
		personCache  service.Cache[*model.Person]
		articleCache service.Cache[*model.Article]
		auditWorker  *audit.Worker
	)

	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return 1
		}
		logger.Info("connected to Redis")

		pc, ac := newEntityCaches(cacheClient, cfg.CacheTTL)
		personCache, articleCache = pc, ac
		// Articles embed their person, so person mutations drop cached articles.
		personDeps.Dependents = []service.Invalidator{ac}

		if cfg.AuditEnabled {
			publisher := events.NewPublisher(cacheClient.Client(), logger, recorder)
			personDeps.Publisher = publisher
			articleDeps.Publisher = publisher
			auditWorker = audit.NewWorker(cacheClient.Client(), store.audits, logger, audit.NewConsumerID(), recorder)
		}

		routerCfg.Health = handler.NewHealthHandler(store.name, store.health, cacheClient)
		routerCfg.RateLimit = middleware.RateLimitConfig{
			Limiter: cacheClient,
			Enabled: cfg.RateLimitAPIEnabled,
			RPS:     cfg.RateLimitAPIRPS,
			Burst:   cfg.RateLimitAPIBurst,
		}
	} else {
		logger.Warn("REDIS_URL not set: cache, rate limiting and audit trail disabled")
		routerCfg.Health = handler.NewHealthHandler(store.name, store.health, nil)
	}

	routerCfg.People = service.NewPersonService(store.people, store.tx, personCache, personDeps)
	routerCfg.Articles = service.NewArticleService(store.articles, store.tx, articleCache, articleDeps)

	srv := server.New(
		handler.NewRouter(routerCfg),
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}
	if auditWorker != nil {
		workerCtx, cancelWorker := context.WithCancel(ctx)
		defer cancelWorker()
		go func() {
			if err := auditWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
				logger.Error("audit worker stopped", "error", err)
			}
		}()
		// Registered last so it drains before Redis closes.
		srv.OnShutdown("audit-worker", auditWorker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"app", cfg.AppName,
		"store", store.name,
		"env", cfg.AppEnv,
		"version", version,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

// newEntityCaches builds the per-entity caches, keyed "person:<id>" and
// "article:<id>".
func newEntityCaches(c *cache.Cache, ttl time.Duration) (*cache.EntityCache[*model.Person], *cache.EntityCache[*model.Article]) {
	return cache.NewEntityCache[*model.Person](c, model.PersonEntity, ttl),
		cache.NewEntityCache[*model.Article](c, model.ArticleEntity, ttl)
}

// openBackend connects the configured store, applying migrations first
// when requested.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if !cfg.UsesPostgres() {
		store, err := memdb.New()
		if err != nil {
			return nil, fmt.Errorf("memdb: %w", err)
		}
		logger.Warn("using in-memory store: data is lost on restart")
		return &backend{
			name:     config.DriverMemory,
			people:   store.People(),
			articles: store.Articles(),
			tx:       store,
			audits:   store.Audits(),
			health:   store,
			close:    func() {},
		}, nil
	}

	if cfg.MigrateOnStart {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	return &backend{
		name:     "postgres",
		people:   repository.NewPersonRepository(repo),
		articles: repository.NewArticleRepository(repo),
		tx:       repo,
		audits:   repository.NewAuditRepository(repo),
		health:   repo,
		close:    repo.Close,
	}, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("app", cfg.AppName)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL keeps the username of a connection URL and drops its password.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError replaces every secret URL in err with its redacted form.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
