package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Database describes how to reach the application's relational database.
// Access is always read-only.
type Database struct {
	Driver                string `toml:"driver"`
	DSN                   string `toml:"dsn"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
	QueryTimeoutSeconds   int    `toml:"query_timeout_seconds"`
}

// FFprobe contains settings for stream probing.
type FFprobe struct {
	Binary          string `toml:"binary"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	AnalyzeDuration int64  `toml:"analyze_duration"`
	ProbeSize       int64  `toml:"probe_size"`
}

// Compare contains the tolerances used when deciding whether two probed
// streams are the same media.
type Compare struct {
	// BitrateTolerance is the allowed bitrate deviation as a fraction of the
	// baseline bitrate. Default: 0.05
	BitrateTolerance float64 `toml:"bitrate_tolerance"`
	// SizeTolerance is the allowed container size deviation as a fraction of
	// the baseline size. Default: 0.05
	SizeTolerance float64 `toml:"size_tolerance"`
	// BitrateToleranceBPS switches the bitrate check to an absolute window in
	// bits per second and disables the size check. 0 keeps ratio mode.
	BitrateToleranceBPS int64 `toml:"bitrate_tolerance_bps"`
}

// API contains configuration for the application's HTTP API.
type API struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Provider contains settings for talking to Xtream Codes provider feeds.
type Provider struct {
	RequestTimeout    int     `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`
	SeriesLimit       int     `toml:"series_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// ToFile additionally appends log lines to <log_dir>/vodaudit.log.
	ToFile bool `toml:"to_file"`
}

// Config encapsulates all configuration values for vodaudit.
//
// Configuration sections by concern:
//   - Paths: log and lock directories
//   - Database: read-only connection to the application database
//   - FFprobe: probe binary and analysis limits
//   - Compare: equivalence tolerances
//   - API: application HTTP API
//   - Provider: Xtream Codes feed access
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Database Database `toml:"database"`
	FFprobe  FFprobe  `toml:"ffprobe"`
	Compare  Compare  `toml:"compare"`
	API      API      `toml:"api"`
	Provider Provider `toml:"provider"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vodaudit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable name used for stream probing.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.FFprobe.Binary); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// ProbeTimeout returns the per-stream ffprobe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.FFprobe.TimeoutSeconds) * time.Second
}

// ConnectTimeout bounds the initial connection and ping.
func (d Database) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutSeconds) * time.Second
}

// QueryTimeout bounds each read-only query.
func (d Database) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutSeconds) * time.Second
}

// LockPath returns the file used to serialize probe runs on this host.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "probe.lock")
}

// RequireDatabase reports a configuration error when no DSN is available.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.DSN) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("database.dsn is required. Set VODAUDIT_DATABASE_DSN or DATABASE_URL, or edit %s (create with 'vodaudit config init')", defaultPath)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
