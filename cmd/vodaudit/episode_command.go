package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vodaudit/internal/appapi"
	"vodaudit/internal/audit"
	"vodaudit/internal/services"
	"vodaudit/internal/streamcompare"
	"vodaudit/internal/vodstore"
)

const (
	sourceDB  = "db"
	sourceAPI = "api"
)

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	var source string
	var apiURL string
	var jsonOut bool
	var tolerance toleranceFlags

	cmd := &cobra.Command{
		Use:   "episode <uuid>",
		Short: "Compare every stream attached to an episode",
		Long: "Resolve the streams of one episode and compare them with ffprobe.\n" +
			"--source db (default) reads relations on active accounts from the database;\n" +
			"--source api reads the episode from the application's HTTP API.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return services.Wrap(services.ErrValidation, "episode", "parse uuid", args[0], err)
			}

			var targets []streamcompare.Target
			switch strings.ToLower(strings.TrimSpace(source)) {
			case sourceDB:
				targets, err = episodeTargetsFromDB(cmd, ctx, id, jsonOut)
			case sourceAPI:
				targets, err = episodeTargetsFromAPI(cmd, ctx, id, apiURL, jsonOut)
			default:
				return services.Wrap(services.ErrValidation, "episode", "source", fmt.Sprintf("unknown source %q (want db or api)", source), nil)
			}
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				if jsonOut {
					return writeJSON(cmd, newComparisonOutput("", []streamcompare.Target{}, nil, streamcompare.Compare(nil, streamcompare.Tolerance{})))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No valid stream URLs found")
				return nil
			}
			return runComparison(cmd, ctx, targets, tolerance, jsonOut)
		},
	}

	cmd.Flags().StringVar(&source, "source", sourceDB, "Where to read the episode's streams: db or api")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Application API base URL (default from config)")
	addJSONFlag(cmd, &jsonOut)
	tolerance.register(cmd)
	return cmd
}

func episodeTargetsFromDB(cmd *cobra.Command, ctx *commandContext, id uuid.UUID, quiet bool) ([]streamcompare.Target, error) {
	var report audit.EpisodeStreamsReport
	err := ctx.withStore(cmd.Context(), func(store *vodstore.Store) error {
		var err error
		report, err = audit.EpisodeStreams(cmd.Context(), store, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	cmd.SetContext(services.WithEpisodeID(cmd.Context(), report.Episode.ID))

	out := cmd.OutOrStdout()
	if report.Relations == 0 {
		if !quiet {
			fmt.Fprintf(out, "No relations found for episode %s\n", report.Episode.Name)
		}
		return nil, nil
	}
	if !quiet {
		fmt.Fprintf(out, "Episode: %s\n", report.Episode.Name)
		fmt.Fprintf(out, "Series: %s\n", report.Episode.SeriesName)
		fmt.Fprintf(out, "Found %d stream(s) from provider(s)\n", report.Relations)
		for _, skipped := range report.Skipped {
			fmt.Fprintf(out, "Warning: Could not get stream URL for relation %d\n", skipped.RelationID)
		}
		fmt.Fprintln(out)
	}
	return report.Targets, nil
}

func episodeTargetsFromAPI(cmd *cobra.Command, ctx *commandContext, id uuid.UUID, apiURL string, quiet bool) ([]streamcompare.Target, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(apiURL)
	if base == "" {
		base = cfg.API.BaseURL
	}
	client := appapi.New(base, time.Duration(cfg.API.TimeoutSeconds)*time.Second)

	out := cmd.OutOrStdout()
	if !quiet {
		fmt.Fprintf(out, "Fetching episode %s from %s...\n", id, client.BaseURL())
	}
	episode, err := client.Episode(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if !quiet && len(episode.Providers) > 0 {
		fmt.Fprintf(out, "Episode: %s\n", orUnknown(episode.Name))
		fmt.Fprintf(out, "Series: %s\n", orUnknown(episode.Series.Name))
	}
	targets, err := appapi.EpisodeStreams(episode)
	switch {
	case errors.Is(err, appapi.ErrNoProviders):
		return nil, services.Wrap(services.ErrNotFound, "appapi", "episode streams", "", err)
	case err != nil:
		return nil, fmt.Errorf("episode %s: %w", id, err)
	}
	if !quiet {
		fmt.Fprintf(out, "Found %d stream(s)\n\n", len(targets))
	}
	return targets, nil
}

func orUnknown(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Unknown"
	}
	return name
}
