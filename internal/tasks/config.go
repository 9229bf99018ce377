package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/config"
)

// Config sizes the worker pool. Retries, timeouts and retention are per
// queue, see each task's Config method.
type Config struct {
	Workers int
	// ReleaseAfter returns a claimed task to the queue when its worker has
	// not finished it in time.
	ReleaseAfter time.Duration
	// CleanupInterval is how often retained task records are purged.
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

// FromAppConfig overlays the task settings from the application config on
// top of the defaults. Zero values keep the default.
func FromAppConfig(c config.Tasks) Config {
	cfg := DefaultConfig()
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if c.ReleaseAfter > 0 {
		cfg.ReleaseAfter = c.ReleaseAfter
	}
	if c.CleanupInterval > 0 {
		cfg.CleanupInterval = c.CleanupInterval
	}
	return cfg
}

// queueConfig keeps finished task records for a day and payloads only
// for failures, which is what the task status endpoint needs.
func queueConfig(name string, attempts int, backoff, timeout time.Duration) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: attempts,
		Backoff:     backoff,
		Timeout:     timeout,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}
