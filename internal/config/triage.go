package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/milestone/internal/reconcile"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TriageConfig tunes the work queue windows, in business days, and the
// amount at which a payment is always considered important.
type TriageConfig struct {
	UrgentDays         int   `mapstructure:"urgentDays"`
	ImportantDays      int   `mapstructure:"importantDays"`
	UpcomingDays       int   `mapstructure:"upcomingDays"`
	HighValueThreshold int64 `mapstructure:"highValueThreshold"`
}

func DefaultTriageConfig() TriageConfig {
	return TriageConfig(reconcile.DefaultTriagePolicy())
}

type TriageConfigHolder struct {
	current atomic.Value // holds TriageConfig
}

// NewStaticTriageConfigHolder returns a holder that never reloads.
func NewStaticTriageConfigHolder(cfg TriageConfig) *TriageConfigHolder {
	holder := &TriageConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewTriageConfigHolder(log *zap.Logger) (*TriageConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("triage")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/milestone/config")
	v.AddConfigPath("/etc/milestone")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MILESTONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTriageConfig()
	v.SetDefault("triage.urgentDays", defaults.UrgentDays)
	v.SetDefault("triage.importantDays", defaults.ImportantDays)
	v.SetDefault("triage.upcomingDays", defaults.UpcomingDays)
	v.SetDefault("triage.highValueThreshold", defaults.HighValueThreshold)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg := readTriageConfig(v)
	if err := validateTriageConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticTriageConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	log = log.Named("triage.config")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := readTriageConfig(v)
		if err := validateTriageConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// readTriageConfig reads key by key so MILESTONE_TRIAGE_* env vars override
// file values.
func readTriageConfig(v *viper.Viper) TriageConfig {
	return TriageConfig{
		UrgentDays:         v.GetInt("triage.urgentDays"),
		ImportantDays:      v.GetInt("triage.importantDays"),
		UpcomingDays:       v.GetInt("triage.upcomingDays"),
		HighValueThreshold: v.GetInt64("triage.highValueThreshold"),
	}
}

func (h *TriageConfigHolder) Get() TriageConfig {
	if h == nil {
		return DefaultTriageConfig()
	}
	cfg, ok := h.current.Load().(TriageConfig)
	if !ok {
		return DefaultTriageConfig()
	}
	return cfg
}

func validateTriageConfig(cfg TriageConfig) error {
	if cfg.UrgentDays < 0 {
		return errors.New("triage.urgentDays cannot be negative")
	}
	if cfg.ImportantDays < cfg.UrgentDays {
		return errors.New("triage.importantDays must be >= triage.urgentDays")
	}
	if cfg.UpcomingDays < cfg.ImportantDays {
		return errors.New("triage.upcomingDays must be >= triage.importantDays")
	}
	if cfg.HighValueThreshold <= 0 {
		return errors.New("triage.highValueThreshold must be positive")
	}
	return nil
}
