package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/systemshift/mindgraph/internal/app"
	"github.com/systemshift/mindgraph/internal/config"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/server/api"
)

func main() {
	defaultPath, err := config.DefaultPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %v", err)
	}
	configPath := flag.String("config", defaultPath, "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatalf("Server stopped: %v", err)
	}
}

// run serves until ctx is done or a component fails. The engine is closed,
// and so flushed, on every path out.
func run(ctx context.Context, cfg *config.Config) (err error) {
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
	}()

	logger.Log("store driver %s, persistence backend %s", cfg.Store.Driver, cfg.Persistence.Backend)

	// notes may have changed while the server was down
	if _, err := a.Engine.BuildFromStore(ctx, true); err != nil {
		// serve the persisted graph; a rebuild can be requested later
		logger.Warn("initial build: %v", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(a),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log("starting mindgraph server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Server.WatchNotes && a.Stores.Folder != nil {
		g.Go(func() error {
			return a.WatchNotes(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Log("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Log("server exited")
	return nil
}

// newRouter mounts health, metrics and the API
func newRouter(a *app.App) http.Handler {
	apiServer := api.New(a.Engine, a.Stores.Sessions)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Routes
	r.Get("/health", apiServer.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", apiServer.Routes)
	return r
}
