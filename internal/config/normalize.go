package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProvider()
	c.normalizeProcessing()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProvider() {
	c.Provider.EndpointURL = strings.TrimSpace(c.Provider.EndpointURL)
	// A bare host is accepted and promoted to https, matching what users
	// tend to paste from provider dashboards.
	if c.Provider.EndpointURL != "" && !strings.Contains(c.Provider.EndpointURL, "://") {
		c.Provider.EndpointURL = "https://" + c.Provider.EndpointURL
	}
	if c.Provider.AuthToken == "" {
		if value, ok := os.LookupEnv("ALTTAG_AUTH_TOKEN"); ok {
			c.Provider.AuthToken = strings.TrimSpace(value)
		}
	}
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeProcessing() {
	if c.Processing.BatchSize <= 0 {
		c.Processing.BatchSize = defaultBatchSize
	}
	if c.Processing.StaleLockMinutes <= 0 {
		c.Processing.StaleLockMinutes = defaultStaleLockMinutes
	}
}

func (c *Config) normalizeWorkflow() {
	if strings.TrimSpace(c.Workflow.Schedule) == "" {
		c.Workflow.Schedule = defaultSchedule
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
