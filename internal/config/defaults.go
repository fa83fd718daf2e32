package config

const (
	defaultDataDir          = "~/.local/share/alttag"
	defaultLogDir           = "~/.local/share/alttag/logs"
	defaultRequestTimeout   = 90
	defaultBatchSize        = 10
	defaultMinConfidence    = 0.70
	defaultRequireReview    = true
	defaultStaleLockMinutes = 15
	defaultSchedule         = "@every 5m"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Provider: Provider{
			RequestTimeout: defaultRequestTimeout,
		},
		Processing: Processing{
			BatchSize:        defaultBatchSize,
			MinConfidence:    defaultMinConfidence,
			RequireReview:    defaultRequireReview,
			StaleLockMinutes: defaultStaleLockMinutes,
		},
		Workflow: Workflow{
			Schedule: defaultSchedule,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
