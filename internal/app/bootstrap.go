package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"wassette/internal/lifecycle"
	"wassette/internal/mcpfacade"
	"wassette/pkg/logging"
)

const subsystem = "Bootstrap"

// shutdownGrace bounds how long Run waits for in-flight work to finish
// when its context is cancelled.
const shutdownGrace = 5 * time.Second

// Application owns the lifecycle manager, the MCP facade built over it, and
// the optional metrics server, and runs them until its context is
// cancelled.
type Application struct {
	config  *Config
	manager *lifecycle.Manager
	facade  *mcpfacade.Facade
	metrics *Metrics
}

// NewApplication performs the full bootstrap sequence: configures logging,
// constructs the lifecycle manager rooted at cfg.PluginDir, and wires the
// MCP facade and Prometheus metrics on top of it.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stderr
	logging.InitForCLI(level, logOutput)

	manager, err := lifecycle.NewManager(ctx, cfg.PluginDir, cfg.Yolo)
	if err != nil {
		logging.Error(subsystem, err, "failed to construct lifecycle manager")
		return nil, fmt.Errorf("constructing lifecycle manager: %w", err)
	}

	metrics := NewMetrics()
	facade := mcpfacade.New(manager, metrics)

	if cfg.Yolo {
		logging.Warn(subsystem, "yolo mode enabled: component policies are not enforced")
	}

	return &Application{
		config:  cfg,
		manager: manager,
		facade:  facade,
		metrics: metrics,
	}, nil
}

// Run serves the MCP facade over stdio until ctx is cancelled, optionally
// alongside a Prometheus metrics server. It blocks until the facade's
// stdio transport returns.
func (a *Application) Run(ctx context.Context) error {
	if a.config.MetricsAddr != "" {
		go a.serveMetrics(ctx)
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.manager.Close(closeCtx); err != nil {
			logging.Warn(subsystem, "error closing lifecycle manager: %v", err)
		}
	}()

	return a.facade.Serve(ctx)
}

func (a *Application) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.config.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info(subsystem, "metrics server listening on %s", a.config.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Warn(subsystem, "metrics server stopped: %v", err)
	}
}
