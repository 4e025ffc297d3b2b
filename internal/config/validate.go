package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. A missing database DSN is not
// an error here because URL comparison never touches the database; commands
// that need it call RequireDatabase.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateFFprobe(); err != nil {
		return err
	}
	if err := c.validateCompare(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be \"postgres\" or \"sqlite\", got %q", c.Database.Driver)
	}
	return ensurePositiveMap(map[string]int{
		"database.connect_timeout_seconds": c.Database.ConnectTimeoutSeconds,
		"database.query_timeout_seconds":   c.Database.QueryTimeoutSeconds,
	})
}

func (c *Config) validateFFprobe() error {
	if c.FFprobe.TimeoutSeconds <= 0 {
		return errors.New("ffprobe.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCompare() error {
	if c.Compare.BitrateTolerance < 0 || c.Compare.BitrateTolerance > 1 {
		return errors.New("compare.bitrate_tolerance must be between 0 and 1")
	}
	if c.Compare.SizeTolerance < 0 || c.Compare.SizeTolerance > 1 {
		return errors.New("compare.size_tolerance must be between 0 and 1")
	}
	if c.Compare.BitrateToleranceBPS < 0 {
		return errors.New("compare.bitrate_tolerance_bps must be >= 0")
	}
	return nil
}

func (c *Config) validateProvider() error {
	if c.Provider.RequestsPerSecond < 0 {
		return errors.New("provider.requests_per_second must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"api.timeout_seconds":      c.API.TimeoutSeconds,
		"provider.request_timeout": c.Provider.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
