package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	assert.Equal(t, "milestone", cfg.AppName)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 10, cfg.Redis.LockTTLSeconds)
	assert.False(t, cfg.IsProduction())
}

func TestLoadTelemetry(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.25, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, "info", cfg.Telemetry.LogLevel)
	assert.Equal(t, "grpc", cfg.Telemetry.Protocol)

	t.Setenv("OTEL_ENABLED", "maybe")
	t.Setenv("OTEL_SAMPLING_RATIO", "half")
	cfg = Load()
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.1, cfg.Telemetry.SamplingRatio)
}

func TestValidateTriageConfig(t *testing.T) {
	require.NoError(t, validateTriageConfig(DefaultTriageConfig()))

	bad := DefaultTriageConfig()
	bad.UpcomingDays = 3
	assert.Error(t, validateTriageConfig(bad))

	bad = DefaultTriageConfig()
	bad.HighValueThreshold = 0
	assert.Error(t, validateTriageConfig(bad))
}

func TestTriageConfigHolderFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewTriageConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultTriageConfig(), holder.Get())

	var nilHolder *TriageConfigHolder
	assert.Equal(t, DefaultTriageConfig(), nilHolder.Get())
}

func TestTriageConfigHolderEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MILESTONE_TRIAGE_HIGHVALUETHRESHOLD", "5000000")

	holder, err := NewTriageConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000), holder.Get().HighValueThreshold)
}
