package app

import (
	"errors"
	"time"
)

// Config holds all the externally supplied parameters of one gridci run.
// Policy numbers (worker count, timeouts, fail-fast default) live here, not
// in the execution core.
type Config struct {
	PipelinePath string

	// Event descriptor: either inline event+ref or a YAML file.
	Event     string
	Ref       string
	EventFile string

	LogFormat string
	LogLevel  string

	Workers     int
	StepTimeout time.Duration
	FailFast    bool

	// StatusPort enables the HTTP status server when > 0.
	StatusPort int
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Event == "" && cfg.EventFile == "" {
		return nil, errors.New("an event must be provided, either inline or via an event file")
	}
	if cfg.Workers < 1 {
		return nil, errors.New("Workers must be at least 1")
	}
	return &cfg, nil
}
