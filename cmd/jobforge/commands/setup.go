package commands

import (
	"context"
	"time"

	"github.com/jobforge/jobforge/pkg/config"
	"github.com/jobforge/jobforge/pkg/engine"
	"github.com/jobforge/jobforge/pkg/telemetry"
)

// runtime bundles the configuration and telemetry shared by all
// subcommands.
type runtime struct {
	cfg     *config.Config
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// newRuntime loads the configuration and wires up telemetry.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if jsonOutput {
		cfg.Telemetry.Logging.Format = "json"
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, err
	}
	metrics, err := telemetry.NewMetrics(cfg.Telemetry.Metrics)
	if err != nil {
		return nil, err
	}
	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing, cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.ListenAddress != "" {
		go func() {
			if err := metrics.Serve(); err != nil {
				logger.WithError(err).Warn("metrics endpoint stopped")
			}
		}()
	}

	return &runtime{cfg: cfg, logger: logger, metrics: metrics, tracer: tracer}, nil
}

// shutdown flushes pending telemetry.
func (rt *runtime) shutdown() {
	if rt.tracer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.tracer.Shutdown(ctx); err != nil {
		rt.logger.WithError(err).Warn("tracer shutdown failed")
	}
}

// engine builds a compilation engine from the runtime configuration.
// pluginsInfo optionally overrides the plugin info document for this
// invocation.
func (rt *runtime) engine(pluginsInfo string) *engine.Engine {
	return engine.New(engine.Options{
		SearchPath:          rt.cfg.SearchPath,
		AllowEmptyVariables: rt.cfg.AllowEmptyVariables,
		Recursive:           rt.cfg.Recursive,
		Excludes:            rt.cfg.Excludes,
		PluginsInfoPath:     pluginsInfo,
		PluginsDir:          rt.cfg.PluginsDir,
		Logger:              rt.logger,
		Metrics:             rt.metrics,
		Tracer:              rt.tracer,
	})
}
