// Package config defines the service configuration and how it is loaded.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DatasetPath optionally names a YAML or JSON file of cohorts loaded at startup.
	DatasetPath string `koanf:"dataset_path" validate:"omitempty,file"`

	// DefaultScheme is used when a request does not name one: four or five.
	DefaultScheme string `koanf:"default_scheme" validate:"oneof=four five 4 5"`

	// IncludePlaceholders keeps subjects without usable ratings in summaries
	// as neutral profiles instead of skipping them.
	IncludePlaceholders bool `koanf:"include_placeholders"`

	// WorkerCount sets the number of analysis job workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// DedupeSize bounds the idempotency key cache. 0 disables eviction.
	DedupeSize int `koanf:"dedupe_size" validate:"min=0"`

	// JobRetention is how long finished jobs stay queryable. 0 keeps them forever.
	JobRetention time.Duration `koanf:"job_retention" validate:"min=0"`

	// MaxSubjects caps the size of an uploaded cohort. 0 means no limit.
	MaxSubjects int `koanf:"max_subjects" validate:"min=0"`
}

// New returns a Config filled with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":9080",
		DefaultScheme: "four",
		WorkerCount:   runtime.NumCPU(),
		QueueSize:     1024,
		DedupeSize:    10_000,
		JobRetention:  time.Hour,
		MaxSubjects:   10_000,
	}
}
