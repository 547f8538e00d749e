package scheduler

import (
	"time"

	"github.com/smallbiznis/milestone/internal/config"
)

// Config controls the refresh loop.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  2 * time.Minute,
	}
}

// ProvideConfig derives the loop settings from the application config. A
// zero interval leaves the scheduler disabled.
func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	out.RunInterval = time.Duration(cfg.SchedulerIntervalSeconds) * time.Second
	return out
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
