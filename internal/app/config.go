package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ExperimentPath points to a single .hcl file or a directory of .hcl
	// files describing the experiment.
	ExperimentPath string

	// Launcher overrides the launcher named in the experiment file.
	Launcher string

	// GenerateOnly stages the run directories without launching anything.
	GenerateOnly bool
	// Overwrite lets generation replace existing run directories.
	Overwrite bool

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ExperimentPath == "" {
		return nil, errors.New("ExperimentPath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
