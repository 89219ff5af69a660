// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/account-garden/api"
	"github.com/bissquit/account-garden/internal/config"
	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/identity"
	"github.com/bissquit/account-garden/internal/identity/jwt"
	identitypostgres "github.com/bissquit/account-garden/internal/identity/postgres"
	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/bissquit/account-garden/internal/pkg/metrics"
	"github.com/bissquit/account-garden/internal/pkg/postgres"
	"github.com/bissquit/account-garden/internal/session"
	"github.com/bissquit/account-garden/internal/todos"
	todospostgres "github.com/bissquit/account-garden/internal/todos/postgres"
	"github.com/bissquit/account-garden/internal/version"
	"github.com/bissquit/account-garden/internal/web"
	"github.com/bissquit/account-garden/migrations"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	redis         redis.UniversalClient
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.DSN(), migrations.FS); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	if cfg.Auth.Strategy == config.StrategySession && cfg.Session.Store == config.SessionStoreRedis {
		client, err := connectRedis(connectCtx, cfg.Redis)
		if err != nil {
			db.Close()
			metricsCancel()
			return nil, err
		}
		app.redis = client
	}

	go app.collectPoolMetrics(metricsCtx)

	router, err := app.setupRouter(metricsCtx)
	if err != nil {
		app.closeStores()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"auth_strategy", a.config.Auth.Strategy,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) closeStores() error {
	var err error
	if a.redis != nil {
		if closeErr := a.redis.Close(); closeErr != nil {
			err = fmt.Errorf("close redis: %w", closeErr)
		}
	}
	a.db.Close()
	return err
}

func (a *App) collectPoolMetrics(ctx context.Context) {
	record := func() {
		metrics.RecordDBPoolMetrics(a.db)
		if a.redis != nil {
			metrics.RecordRedisPoolMetrics(a.redis)
		}
	}
	record()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			record()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) sweepSessions(ctx context.Context, store *session.MemoryStore) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				a.logger.Debug("expired sessions removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)
	r.Get("/api/openapi.yaml", openAPIHandler)
	r.Get("/docs", docsHandler)

	identityRepo := identitypostgres.NewRepository(a.db)
	todoService := todos.NewService(todospostgres.NewRepository(a.db))
	todos.NewHandler(todoService).RegisterRoutes(r)

	var identityService *identity.Service

	switch a.config.Auth.Strategy {
	case config.StrategyToken:
		jwtAuth := jwt.NewAuthenticator(jwt.Config{
			SecretKey:           a.config.JWT.SecretKey,
			AccessTokenDuration: a.config.JWT.AccessTokenDuration,
		})
		identityService = identity.NewService(identityRepo, jwtAuth)
		identityHandler := identity.NewHandler(identityService)

		renderer, err := web.NewRenderer(nil)
		if err != nil {
			return nil, fmt.Errorf("create renderer: %w", err)
		}

		identityHandler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))
			identityHandler.RegisterProtectedRoutes(r)
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			renderer.Render(w, r, http.StatusOK, web.PageHome, web.Page{Title: "Home"})
		})
		web.NewTodoPages(todoService, renderer, nil).RegisterRoutes(r)

	case config.StrategySession:
		store, err := a.sessionStore(ctx)
		if err != nil {
			return nil, err
		}
		manager := session.NewManager(store, session.Config{
			CookieName: a.config.Session.CookieName,
			TTL:        a.config.Session.TTL,
			Secure:     a.config.Session.Secure,
			Domain:     a.config.Session.Domain,
		})

		renderer, err := web.NewRenderer(manager)
		if err != nil {
			return nil, fmt.Errorf("create renderer: %w", err)
		}

		identityService = identity.NewService(identityRepo, nil)
		pages := web.NewHandler(identityService, manager, renderer, a.config.App.IsProduction())

		r.Group(func(r chi.Router) {
			r.Use(manager.LoadUser)
			pages.RegisterRoutes(r)
			web.NewTodoPages(todoService, renderer, manager).RegisterRoutes(r)
		})

	default:
		return nil, fmt.Errorf("unknown auth strategy %q", a.config.Auth.Strategy)
	}

	if err := a.bootstrapAdmin(ctx, identityService); err != nil {
		return nil, err
	}

	return r, nil
}

func (a *App) sessionStore(ctx context.Context) (session.Store, error) {
	switch a.config.Session.Store {
	case config.SessionStoreRedis:
		return session.NewRedisStore(a.redis, a.config.Session.KeyPrefix), nil
	case config.SessionStoreMemory:
		store := session.NewMemoryStore()
		go a.sweepSessions(ctx, store)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", a.config.Session.Store)
	}
}

func (a *App) bootstrapAdmin(ctx context.Context, service *identity.Service) error {
	bc := a.config.Bootstrap
	if bc.AdminEmail == "" {
		return nil
	}

	user, created, err := service.EnsureAdmin(ctx, bc.AdminName, bc.AdminEmail, bc.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		a.logger.Info("admin account created", "user_id", user.ID)
	} else if user.Role != domain.RoleAdmin {
		a.logger.Warn("bootstrap email belongs to a non-admin account", "user_id", user.ID)
	}
	return nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	slog.Info("connected to redis", "addr", cfg.Addr)
	return client, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func openAPIHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(api.OpenAPI)
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Account Garden API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
