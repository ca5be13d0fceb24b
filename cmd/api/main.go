package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"popup-service/internal/config"
	"popup-service/internal/creative"
	"popup-service/internal/platform/logging"
	creativePostgres "popup-service/internal/platform/postgres"
	creativeRedis "popup-service/internal/platform/redis"
	"popup-service/internal/popup"

	_ "popup-service/docs" // Import generated docs

	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/sync/errgroup"
)

// @title           Popup Service API
// @version         1.0
// @description     Promotional popup scheduling with per-tab frequency gating, Redis & PostgreSQL.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("popup service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// 1. Init Redis Connection (Infra)
	rdb, err := creativeRedis.NewClient(ctx, creativeRedis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("redis connected", "addr", cfg.Redis.Addr)

	// 2. Init SQL Connection (Infra)
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("could not open SQL connection: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("could not connect to PostgreSQL: %w", err)
	}
	log.Info("postgres connected")

	// 3. Init Layers
	store := creativePostgres.NewStore(db)
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}
	svc := creative.NewService(creativeRedis.NewRepository(rdb), store)
	if err := svc.SyncCreatives(ctx); err != nil {
		// Redis may still hold the last synced catalog.
		log.Warn("initial creative sync failed", "error", err)
	}

	var preloader popup.Preloader
	if cfg.Popup.PreloadImages {
		preloader = popup.NewHTTPPreloader(&http.Client{Timeout: 10 * time.Second})
	}
	tabs := popup.NewRegistry(svc, svc, preloader,
		creativeRedis.SessionStoreFactory(rdb, cfg.Popup.TabIdleTTL),
		popup.RegistryConfig{
			Triggers: popup.TriggerConfig{
				Interval:         cfg.Popup.Interval,
				InitialDelay:     cfg.Popup.InitialDelay,
				ActivityDebounce: cfg.Popup.ActivityDebounce,
				RouteDelay:       cfg.Popup.RouteDelay,
			},
			TypingWindow: cfg.Popup.TypingWindow,
			IdleTTL:      cfg.Popup.TabIdleTTL,
		}, log)

	ping := func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return nil
	}
	handler := NewHandler(svc, tabs, log, ping)

	// 4. Routes
	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL(cfg.SwaggerURL),
	))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 5. Start Server
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tabs.Run(ctx)
	})
	g.Go(func() error {
		log.Info("popup service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
