package observability

import (
	"strings"

	"github.com/smallbiznis/milestone/internal/config"
)

// Config is the normalized view of config.Config the logger, tracer and
// meter providers are built from.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "milestone"
	}
	telemetry := cfg.Telemetry

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             lowerOr(telemetry.LogLevel, "info"),
		LogFormat:            lowerOr(telemetry.LogFormat, "json"),
		OtelEnabled:          telemetry.Enabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: lowerOr(telemetry.Protocol, "grpc"),
		OtelSamplingRatio:    telemetry.SamplingRatio,
	}
}

// Debug turns on development logging and stack traces. Local and test
// environments always log at debug.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func lowerOr(value, def string) string {
	if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
		return value
	}
	return def
}
