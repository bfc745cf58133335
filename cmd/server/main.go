package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/sitetrack/internal/api"
	"github.com/lalith-99/sitetrack/internal/assign"
	"github.com/lalith-99/sitetrack/internal/config"
	"github.com/lalith-99/sitetrack/internal/db"
	"github.com/lalith-99/sitetrack/internal/geo"
	"github.com/lalith-99/sitetrack/internal/observ"
	"github.com/lalith-99/sitetrack/internal/repository"
	"github.com/lalith-99/sitetrack/internal/repository/memory"
	"github.com/lalith-99/sitetrack/internal/repository/postgres"
	"github.com/lalith-99/sitetrack/internal/session"
	"github.com/lalith-99/sitetrack/internal/store"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// storage is the set of repositories the server runs on.
type storage struct {
	backend repository.Backend
	actors  repository.ActorRepository
	owners  repository.OwnerRepository
	health  func(context.Context) error
	close   func()
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	cache, closeCache, err := openProfileCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	metrics := observ.NewMetrics()

	// A nil *HTTPGeocoder must not end up inside the interface.
	var geocoder geo.Geocoder
	if cfg.GeocoderURL != "" {
		geocoder = geo.NewHTTPGeocoder(geo.WithBaseURL(cfg.GeocoderURL), geo.WithLanguage(cfg.GeocoderLanguage))
	}

	router := api.NewRouter(api.Deps{
		Actors:   st.actors,
		Owners:   st.owners,
		Registry: store.NewRegistry(st.backend, logger),
		Engine: assign.NewEngine(logger, metrics, assign.Options{
			DecisionTTL: cfg.DecisionTTL,
			AutoRestore: cfg.AutoRestore,
		}),
		Sessions: session.NewManager(st.actors, cache, logger, metrics, session.Options{
			VerifyTimeout: cfg.VerifyTimeout,
		}),
		Geocoder:  geocoder,
		Metrics:   metrics,
		Logger:    logger,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Health:    st.health,
	})

	var handler http.Handler = router
	if len(cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler(router)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting SiteTrack",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("storage", cfg.Storage),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		mem := memory.New()
		return &storage{
			backend: mem.Backend(),
			actors:  mem.Actors(),
			owners:  mem.Owners(),
			close:   func() {},
		}, nil
	}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	pool := database.Pool()
	return &storage{
		backend: repository.Backend{
			Representatives: postgres.NewRepresentativeStore(pool),
			Sites:           postgres.NewSiteStore(pool),
			Logs:            postgres.NewActivityLogStore(pool),
		},
		actors: postgres.NewActorStore(pool),
		owners: postgres.NewOwnerStore(pool),
		health: database.Health,
		close:  database.Close,
	}, nil
}

func openProfileCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.ProfileCache, func(), error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, caching session profiles in memory")
		return session.NewMemoryCache(), func() {}, nil
	}
	client, err := session.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	return session.NewRedisCache(client, cfg.TokenTTL), closeFn, nil
}
