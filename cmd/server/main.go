// Command server starts the passive-skill-tree optimizer's HTTP
// surface: it loads the tree graph, boots the calculation oracle,
// wires the session coordinator and TTL sweeper, and serves until it
// receives a shutdown signal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/config"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/gate"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/httpapi"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/logging"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/metrics"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/oracle"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/session"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New("optimizer", cfg.LogLevel, cfg.LogFormat)

	graph, err := treegraph.LoadFromFile(cfg.TreeDataPath)
	if err != nil {
		return fmt.Errorf("load passive tree: %w", err)
	}
	logger.WithContext(context.Background()).WithField("nodes", graph.NodeCount()).Info("passive tree loaded")

	o := oracle.New(graph)
	if err := o.Initialize(); err != nil {
		return fmt.Errorf("initialize calculation oracle: %w", err)
	}

	requestGate := gate.New(cfg.GateTimeout)
	coordinator := session.New(graph, o, requestGate, logger, cfg.SessionTTL)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		o.SetMetrics(m)
		requestGate.SetMetrics(m)
		coordinator.SetMetrics(m)
	}

	sweeper := session.NewSweeper(coordinator, logger, fmt.Sprintf("@every %s", cfg.SweepInterval))
	sweeper.Start()
	defer sweeper.Stop()

	srv := httpapi.NewServer(graph, o, coordinator, cfg, logger)
	router := httpapi.NewRouter(srv, m)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.BindHost, cfg.BindPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // progress streams are long-lived SSE connections
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithContext(context.Background()).WithField("addr", httpServer.Addr).Info("optimizer listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sigCh:
		logger.WithContext(context.Background()).Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	return nil
}
