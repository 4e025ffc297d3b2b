package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vodaudit/internal/config"
	"vodaudit/internal/logging"
	"vodaudit/internal/media/ffprobe"
	"vodaudit/internal/services"
	"vodaudit/internal/streamcompare"
	"vodaudit/internal/vodstore"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "ensure directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// log returns the process logger, built once from config. Construction
// failures fall back to a console logger on stderr.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
		}
		c.logger = logger
	})
	return c.logger
}

// runContext tags the command context with a fresh run id for log correlation.
func (c *commandContext) runContext(cmd *cobra.Command) (context.Context, string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	return services.WithRunID(ctx, runID), runID
}

func (c *commandContext) openStore(ctx context.Context) (*vodstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "vodstore", "open", "", err)
	}
	store, err := vodstore.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	c.log().Debug("database opened", logging.String("driver", store.Driver()))
	return store, nil
}

func (c *commandContext) withStore(ctx context.Context, fn func(*vodstore.Store) error) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) probeOptions() ffprobe.Options {
	cfg := c.configValue()
	return ffprobe.Options{
		Binary:          cfg.FFprobeBinary(),
		Timeout:         cfg.ProbeTimeout(),
		AnalyzeDuration: cfg.FFprobe.AnalyzeDuration,
		ProbeSize:       cfg.FFprobe.ProbeSize,
	}
}

// toleranceFlags lets comparison commands override the configured tolerances.
type toleranceFlags struct {
	bitrate float64
	size    float64
	window  int64
}

func (f *toleranceFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.bitrate, "bitrate-tolerance", -1, "Allowed bitrate deviation as a fraction of the first stream (default from config)")
	cmd.Flags().Float64Var(&f.size, "size-tolerance", -1, "Allowed size deviation as a fraction of the first stream (default from config)")
	cmd.Flags().Int64Var(&f.window, "bitrate-window", -1, "Absolute bitrate window in bits/sec; disables the size check")
}

func (f *toleranceFlags) resolve(cfg *config.Config) (streamcompare.Tolerance, error) {
	compare := cfg.Compare
	if f.bitrate >= 0 {
		compare.BitrateTolerance = f.bitrate
	}
	if f.size >= 0 {
		compare.SizeTolerance = f.size
	}
	if f.window >= 0 {
		compare.BitrateToleranceBPS = f.window
	}
	if compare.BitrateTolerance > 1 || compare.SizeTolerance > 1 {
		return streamcompare.Tolerance{}, services.Wrap(services.ErrValidation, "compare", "tolerance", "tolerances must be between 0 and 1", nil)
	}
	if compare.BitrateToleranceBPS > 0 {
		return streamcompare.AbsoluteTolerance(compare.BitrateToleranceBPS), nil
	}
	return streamcompare.Tolerance{
		BitrateRatio: compare.BitrateTolerance,
		SizeRatio:    compare.SizeTolerance,
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
