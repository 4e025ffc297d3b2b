package config

const (
	defaultConfigPath             = "~/.config/vodaudit/config.toml"
	defaultLogDir                 = "~/.local/share/vodaudit/logs"
	defaultStateDir               = "~/.local/state/vodaudit"
	defaultDatabaseDriver         = "postgres"
	defaultConnectTimeoutSeconds  = 10
	defaultQueryTimeoutSeconds    = 60
	defaultFFprobeBinary          = "ffprobe"
	defaultFFprobeTimeoutSeconds  = 15
	defaultFFprobeAnalyzeDuration = 5_000_000
	defaultFFprobeProbeSize       = 10_000_000
	defaultBitrateTolerance       = 0.05
	defaultSizeTolerance          = 0.05
	defaultAPIBaseURL             = "http://localhost:5656"
	defaultAPITimeoutSeconds      = 30
	defaultProviderRequestTimeout = 60
	defaultProviderRPS            = 4
	defaultProviderUserAgent      = "VLC/3.0.20 LibVLC/3.0.20"
	defaultProviderSeriesLimit    = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Database: Database{
			Driver:                defaultDatabaseDriver,
			ConnectTimeoutSeconds: defaultConnectTimeoutSeconds,
			QueryTimeoutSeconds:   defaultQueryTimeoutSeconds,
		},
		FFprobe: FFprobe{
			Binary:          defaultFFprobeBinary,
			TimeoutSeconds:  defaultFFprobeTimeoutSeconds,
			AnalyzeDuration: defaultFFprobeAnalyzeDuration,
			ProbeSize:       defaultFFprobeProbeSize,
		},
		Compare: Compare{
			BitrateTolerance: defaultBitrateTolerance,
			SizeTolerance:    defaultSizeTolerance,
		},
		API: API{
			BaseURL:        defaultAPIBaseURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
		},
		Provider: Provider{
			RequestTimeout:    defaultProviderRequestTimeout,
			RequestsPerSecond: defaultProviderRPS,
			UserAgent:         defaultProviderUserAgent,
			SeriesLimit:       defaultProviderSeriesLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
