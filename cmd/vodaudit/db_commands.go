package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vodaudit/internal/audit"
	"vodaudit/internal/services"
	"vodaudit/internal/vodstore"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Read-only integrity checks against the application database",
	}
	dbCmd.AddCommand(newDuplicateEpisodesCommand(ctx))
	dbCmd.AddCommand(newDuplicateStreamsCommand(ctx))
	dbCmd.AddCommand(newGroupingCheckCommand(ctx))
	dbCmd.AddCommand(newStreamsCommand(ctx))
	dbCmd.AddCommand(newDBEpisodeCommand(ctx))
	dbCmd.AddCommand(newDedupCheckCommand(ctx))
	return dbCmd
}

func seriesLabel(name string, id int64) string {
	if strings.TrimSpace(name) == "" {
		return fmt.Sprintf("Unknown Series (%d)", id)
	}
	return name
}

func newDuplicateEpisodesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool
	var metricsPath string

	cmd := &cobra.Command{
		Use:   "duplicate-episodes",
		Short: "Find Episode rows that share a series, season, and episode number",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report audit.EpisodeIntegrityReport
			err := ctx.withStore(cmd.Context(), func(store *vodstore.Store) error {
				var err error
				report, err = audit.DuplicateEpisodes(cmd.Context(), store, limit)
				return err
			})
			if err != nil {
				return err
			}
			metrics := newMetricsFile(metricsPath)
			metrics.recordDuplicateEpisodes(report)
			if err := metrics.write("duplicate_episodes"); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Checking for duplicate Episode objects (same Series, Season, Number)...")
			if report.Clean() {
				fmt.Fprintln(out, "No duplicate Episode objects found. Database integrity looks good.")
				return nil
			}
			fmt.Fprintf(out, "Found %s sets of duplicate episodes!\n\n", humanize.Comma(int64(report.Total)))
			tbl := reportTable{
				headers: []string{"Series", "Episode", "Count"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
			}
			for _, set := range report.Sets {
				tbl.add(seriesLabel(set.SeriesName, set.SeriesID), vodstore.FormatSlot(set.SeasonNumber, set.EpisodeNumber), strconv.Itoa(set.Count))
			}
			fmt.Fprintln(out, tbl.render())
			fmt.Fprintf(out, "\nTotal duplicate sets: %s\n", humanize.Comma(int64(report.Total)))
			fmt.Fprintln(out, "Streams for these episodes are split across the duplicate rows, so per-episode comparisons miss them.")
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", audit.DefaultDuplicateLimit, "Maximum duplicate sets to list (0 lists all)")
	cmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newDuplicateStreamsCommand(ctx *commandContext) *cobra.Command {
	var examples int
	var jsonOut bool
	var metricsPath string

	cmd := &cobra.Command{
		Use:   "duplicate-streams",
		Short: "List episodes that carry more than one stream per active account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var accounts []audit.AccountDuplicates
			err := ctx.withStore(cmd.Context(), func(store *vodstore.Store) error {
				var err error
				accounts, err = audit.DuplicateStreams(cmd.Context(), store, examples)
				return err
			})
			if err != nil {
				return err
			}
			metrics := newMetricsFile(metricsPath)
			metrics.recordDuplicateStreams(accounts)
			if err := metrics.write("duplicate_streams"); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, accounts)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, "Scanning for episodes with multiple streams...")
			for _, entry := range accounts {
				fmt.Fprintf(out, "\nChecking Account: %s (ID: %d)\n", entry.Account.Name, entry.Account.ID)
				fmt.Fprintf(out, "Found %s episodes with multiple streams.\n", humanize.Comma(int64(entry.Episodes)))
				for _, example := range entry.Examples {
					ep := example.Episode
					fmt.Fprintln(out)
					fmt.Fprintln(out, paint(fmt.Sprintf("WARNING: Episode '%s' (%s) has %d streams:", ep.Name, ep.Slot(), len(example.Streams)), ansiYellow, colorize))
					for i, stream := range example.Streams {
						title := stream.InfoTitle
						if title == "" {
							title = "N/A"
						}
						fmt.Fprintf(out, "  Stream #%d:\n", i+1)
						fmt.Fprintf(out, "    - Stream ID: %s\n", stream.StreamID)
						fmt.Fprintf(out, "    - Container: %s\n", stream.Container)
						fmt.Fprintf(out, "    - Title in metadata: %s\n", title)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&examples, "examples", audit.DefaultExampleLimit, "Example episodes to show per account")
	cmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newGroupingCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var metricsPath string

	cmd := &cobra.Command{
		Use:   "grouping-check",
		Short: "Cross-check the duplicate-stream query against in-process grouping",
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []audit.GroupingResult
			err := ctx.withStore(cmd.Context(), func(store *vodstore.Store) error {
				var err error
				results, err = audit.GroupingCheck(cmd.Context(), store)
				return err
			})
			if err != nil {
				return err
			}
			metrics := newMetricsFile(metricsPath)
			metrics.recordGrouping(results)
			if err := metrics.write("grouping_check"); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			names := make([]string, 0, len(results))
			for _, result := range results {
				names = append(names, result.Account.Name)
			}
			fmt.Fprintf(out, "Active Accounts: %s\n\n", strings.Join(names, ", "))
			tbl := reportTable{
				headers: []string{"Account", "Relations", "Grouped in process", "Grouped by query", "Status"},
				aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
			}
			mismatches := 0
			for _, result := range results {
				status := "OK"
				if result.Mismatch() {
					status = "MISMATCH"
					mismatches++
				}
				tbl.add(result.Account.Name,
					humanize.Comma(int64(result.TotalRelations)),
					humanize.Comma(int64(result.ManualCount)),
					humanize.Comma(int64(result.QueryCount)),
					status)
			}
			fmt.Fprintln(out, tbl.render())
			if mismatches > 0 {
				fmt.Fprintln(out, "\nMismatch detected! The grouping query misses episodes that have several streams.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "streams <stream-id> [stream-id...]",
		Short: "Look up specific provider stream ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var report audit.StreamLookupReport
			err := ctx.withStore(cmd.Context(), func(store *vodstore.Store) error {
				var err error
				report, err = audit.StreamLookup(cmd.Context(), store, args)
				return err
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checking for stream IDs: %s...\n", strings.Join(report.Requested, ", "))
			if len(report.Found) == 0 {
				fmt.Fprintln(out, "❌ None of the stream IDs are in the database. A refresh has not imported them yet, or they were skipped.")
				return nil
			}
			for _, found := range report.Found {
				rel := found.Relation
				fmt.Fprintf(out, "\n✅ Found Stream ID: %s\n", rel.StreamID)
				fmt.Fprintf(out, "   Episode ID: %d\n", rel.EpisodeID)
				if found.Episode != nil {
					fmt.Fprintf(out, "   Episode: %s (%s)\n", found.Episode.Name, found.Episode.Slot())
					fmt.Fprintf(out, "   Series: %s\n", seriesLabel(found.Episode.SeriesName, found.Episode.SeriesID))
				}
				fmt.Fprintf(out, "   Provider: %s\n", rel.Account.Name)
				fmt.Fprintf(out, "   Created: %s\n", formatTimestamp(rel.CreatedAt))
				fmt.Fprintf(out, "   Updated: %s\n", formatTimestamp(rel.UpdatedAt))
			}
			if len(report.Missing) > 0 {
				fmt.Fprintf(out, "\n❌ Missing Stream IDs: %s\n", strings.Join(report.Missing, ", "))
			}
			return nil
		},
	}
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newDBEpisodeCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "episode <episode-id>",
		Short: "Show an episode and every stream attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return services.Wrap(services.ErrValidation, "db episode", "parse id", args[0], err)
			}
			var report audit.EpisodeInspectionReport
			err = ctx.withStore(cmd.Context(), func(store *vodstore.Store) error {
				var err error
				report, err = audit.EpisodeInspection(cmd.Context(), store, id)
				return err
			})
			if err != nil {
				if vodstore.IsNotFound(err) && !jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "❌ Episode %d NOT FOUND in database.\n", id)
				}
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			ep := report.Episode
			fmt.Fprintf(out, "Inspecting Episode ID: %d ...\n", id)
			fmt.Fprintf(out, "✅ Found Episode: %s\n", ep.Name)
			fmt.Fprintf(out, "   Series: %s\n", seriesLabel(ep.SeriesName, ep.SeriesID))
			fmt.Fprintf(out, "   Season: %s\n", optionalNumber(ep.SeasonNumber))
			fmt.Fprintf(out, "   Episode: %s\n", optionalNumber(ep.EpisodeNumber))
			fmt.Fprintf(out, "   UUID: %s\n", ep.UUID)
			fmt.Fprintln(out, "\nChecking for attached streams...")
			if len(report.Streams) == 0 {
				fmt.Fprintln(out, "❌ No streams attached to this episode!")
				return nil
			}
			fmt.Fprintf(out, "Found %d stream(s):\n", len(report.Streams))
			for i, stream := range report.Streams {
				fmt.Fprintf(out, "  %d. Stream ID: '%s' (Length: %d)\n", i+1, stream.StreamID, stream.StreamIDLength)
				fmt.Fprintf(out, "     Provider: %s\n", stream.Provider)
				fmt.Fprintf(out, "     Container: %s\n", stream.Container)
				fmt.Fprintf(out, "     Created: %s\n", stream.CreatedAt)
			}
			return nil
		},
	}
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func newDedupCheckCommand(ctx *commandContext) *cobra.Command {
	var spec audit.DedupSpec
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "dedup-check",
		Short: "Verify that several stream ids share one Episode row",
		Long: "Check that exactly one Episode occupies a series slot and that every listed\n" +
			"stream id is attached to it. Exits non-zero when any check fails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report audit.DedupReport
			err := ctx.withStore(cmd.Context(), func(store *vodstore.Store) error {
				var err error
				report, err = audit.DedupCheck(cmd.Context(), store, spec)
				return err
			})
			if err != nil {
				return err
			}
			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				writeDedupReport(cmd, report)
			}
			if !report.Passed() {
				return audit.ErrDedupFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&spec.Series, "series", "", "Series name substring (case-insensitive)")
	cmd.Flags().Int64Var(&spec.Season, "season", 0, "Season number")
	cmd.Flags().Int64Var(&spec.Episode, "episode", 0, "Episode number")
	cmd.Flags().StringSliceVar(&spec.StreamIDs, "stream-id", nil, "Stream id expected on the episode (repeatable)")
	_ = cmd.MarkFlagRequired("series")
	_ = cmd.MarkFlagRequired("stream-id")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func writeDedupReport(cmd *cobra.Command, report audit.DedupReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	slot := vodstore.FormatSlot(&report.Spec.Season, &report.Spec.Episode)

	writeBanner(out, "Episode Deduplication Check", colorize)
	fmt.Fprintf(out, "Using Series: %s (ID: %d)\n", report.Series.Name, report.Series.ID)
	fmt.Fprintf(out, "Stream IDs: %s\n\n", strings.Join(report.Spec.StreamIDs, ", "))

	check := func(ok bool, pass, fail string) {
		if ok {
			fmt.Fprintln(out, renderStatusLine("Check", statusOK, pass, colorize))
			return
		}
		fmt.Fprintln(out, renderStatusLine("Check", statusError, fail, colorize))
	}
	check(report.SingleEpisode,
		fmt.Sprintf("exactly 1 Episode for %s", slot),
		fmt.Sprintf("%d Episode rows for %s (expected 1)", len(report.Episodes), slot))
	check(report.AllStreamsPresent,
		fmt.Sprintf("all %d stream ids have a relation", len(report.Spec.StreamIDs)),
		fmt.Sprintf("missing stream ids: %s", strings.Join(report.MissingStreamIDs, ", ")))
	check(report.SameEpisode,
		"all relations point to the same Episode",
		fmt.Sprintf("relations point to %d different Episodes", len(report.DistinctEpisodes)))

	fmt.Fprintln(out)
	if report.Passed() {
		fmt.Fprintln(out, paint("✓ ALL CHECKS PASSED", ansiGreen, colorize))
		return
	}
	fmt.Fprintln(out, paint("✗ SOME CHECKS FAILED", ansiRed, colorize))
}

func optionalNumber(v *int64) string {
	if v == nil {
		return "None"
	}
	return strconv.FormatInt(*v, 10)
}
