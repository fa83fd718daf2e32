package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.BatchSize < 1 || c.Processing.BatchSize > 50 {
		return errors.New("processing.batch_size must be between 1 and 50")
	}
	if c.Processing.MinConfidence < 0 || c.Processing.MinConfidence > 1 {
		return errors.New("processing.min_confidence must be between 0 and 1")
	}
	if c.Processing.StaleLockMinutes < 1 {
		return errors.New("processing.stale_lock_minutes must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
