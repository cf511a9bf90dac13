package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"metalwatch/internal/api"
	"metalwatch/internal/config"
	"metalwatch/internal/engine"
	"metalwatch/internal/fetch"
	"metalwatch/internal/httpapi"
	"metalwatch/internal/refresh"
	"metalwatch/internal/store"
	"metalwatch/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/metalwatch.yaml"
	if p := os.Getenv("METALWATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLoggerTo(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("metalwatch-server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	st, err := openStore(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("opening %s settings store: %w", cfg.Storage.Backend, err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := api.NewHub(logger)
	fetcher := fetch.NewHTTPFetcher(cfg.Refresh.FetchTimeout, cfg.Refresh.UserAgent)
	eng := engine.New(st, fetcher, engine.Options{
		Interval: cfg.Refresh.Interval,
		Hooks: engine.Hooks{
			OnPriceUpdated:    hub.PriceUpdated,
			OnRegistryChanged: hub.RegistryChanged,
		},
		Logger:  logger,
		Metrics: refresh.NewMetrics(reg),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer eng.Stop()

	handler := httpapi.NewServer(eng, logger,
		http.HandlerFunc(hub.HandleWebSocket),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	).Handler()
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := api.NewServer(addr, handler, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx.Done())
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	logger.Info("metalwatch-server started",
		"addr", addr,
		"backend", cfg.Storage.Backend,
		"interval", cfg.Refresh.Interval.String(),
	)
	err = g.Wait()
	logger.Info("shutting down metalwatch-server")
	return err
}

// openStore opens the configured settings backend.
func openStore(cfg config.Storage, logger *slog.Logger) (store.SettingsStore, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemoryStore(nil), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.Path)
	case "file":
		return store.NewFileStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
