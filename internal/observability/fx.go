package observability

import (
	"github.com/smallbiznis/milestone/internal/observability/logger"
	"github.com/smallbiznis/milestone/internal/observability/metrics"
	"github.com/smallbiznis/milestone/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.Logger,
		Config.Tracing,
		Config.Metrics,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.ReconcileWithConfig,
	),
	fx.Invoke(announce),
)

// Logger keeps every record in debug environments and adds stack traces to
// errors there.
func (c Config) Logger() logger.Config {
	debug := c.Debug()
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               debug,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}

// Tracing samples every trace in debug environments.
func (c Config) Tracing() tracing.Config {
	ratio := c.OtelSamplingRatio
	if c.Debug() {
		ratio = 1
	}
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		SamplingRatio:    ratio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}

// announce forces the tracer provider to be built and records where
// telemetry goes.
func announce(cfg Config, _ *sdktrace.TracerProvider, log *zap.Logger) {
	if !cfg.OtelEnabled {
		log.Info("otlp export disabled")
		return
	}
	log.Info("otlp export enabled",
		zap.String("endpoint", cfg.OtelExporterEndpoint),
		zap.String("protocol", cfg.OtelExporterProtocol),
		zap.Float64("sampling_ratio", cfg.Tracing().SamplingRatio),
	)
}
