package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vodaudit/internal/audit"
	"vodaudit/internal/logging"
	"vodaudit/internal/services"
	"vodaudit/internal/vodstore"
	"vodaudit/internal/xtream"
)

func newProviderCommand(ctx *commandContext) *cobra.Command {
	providerCmd := &cobra.Command{
		Use:   "provider",
		Short: "Inspect a provider's raw Xtream feed",
	}
	providerCmd.AddCommand(newProviderScanCommand(ctx))
	return providerCmd
}

func newProviderScanCommand(ctx *commandContext) *cobra.Command {
	var accountName string
	var seriesLimit int
	var match string
	var jsonOut bool
	var metricsPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find episode slots the provider lists with several stream ids",
		Long: "Fetch the series list from the provider and walk the first series,\n" +
			"grouping episodes by season and episode number. Uses the first active XC\n" +
			"account unless --account is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, _ := ctx.runContext(cmd)

			var account vodstore.Account
			err = ctx.withStore(runCtx, func(store *vodstore.Store) error {
				var err error
				if name := strings.TrimSpace(accountName); name != "" {
					account, err = store.AccountByName(runCtx, name)
				} else {
					account, err = store.FirstActiveXtreamAccount(runCtx)
				}
				return err
			})
			if err != nil {
				if vodstore.IsNotFound(err) && accountName == "" {
					return services.Wrap(services.ErrNotFound, "provider scan", "account", "no active XC account found", nil)
				}
				return err
			}
			if !account.IsXtream() {
				return services.Wrap(services.ErrValidation, "provider scan", "account",
					fmt.Sprintf("account %q is %s, not XC", account.Name, account.AccountType), nil)
			}

			userAgent := account.UserAgent
			if strings.TrimSpace(userAgent) == "" {
				userAgent = cfg.Provider.UserAgent
			}
			feed, err := xtream.New(xtream.Options{
				BaseURL:           account.ServerURL,
				Username:          account.Username,
				Password:          account.Password,
				UserAgent:         userAgent,
				Timeout:           time.Duration(cfg.Provider.RequestTimeout) * time.Second,
				RequestsPerSecond: cfg.Provider.RequestsPerSecond,
			})
			if err != nil {
				return err
			}

			limit := seriesLimit
			if !cmd.Flags().Changed("series-limit") {
				limit = cfg.Provider.SeriesLimit
			}
			out := cmd.OutOrStdout()
			if !jsonOut {
				fmt.Fprintln(out, "Connecting to provider to analyze RAW data...")
				fmt.Fprintf(out, "Using account: %s\n", account.Name)
			}

			runCtx = services.WithAccount(runCtx, account.Name)
			report, err := audit.ProviderScan(runCtx, feed, audit.ScanOptions{
				SeriesLimit: limit,
				NameFilter:  match,
				Logger:      logging.WithContext(runCtx, ctx.log()),
			})
			if err != nil {
				return err
			}
			metrics := newMetricsFile(metricsPath)
			metrics.recordProviderScan(account.Name, report)
			if err := metrics.write("provider_scan"); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, struct {
					Account string                   `json:"account"`
					Report  audit.ProviderScanReport `json:"report"`
				}{account.Name, report})
			}
			writeProviderScan(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountName, "account", "", "Account name to scan (default: first active XC account)")
	cmd.Flags().IntVar(&seriesLimit, "series-limit", audit.DefaultSeriesLimit, "Series to walk (-1 for all; default from config)")
	cmd.Flags().StringVar(&match, "match", "", "Only scan series whose name contains this text")
	cmd.Flags().StringVar(&metricsPath, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	addJSONFlag(cmd, &jsonOut)
	return cmd
}

func writeProviderScan(cmd *cobra.Command, report audit.ProviderScanReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Found %s series.\n", humanize.Comma(int64(report.TotalSeries)))

	for _, dup := range report.Duplicates {
		fmt.Fprintln(out)
		fmt.Fprintln(out, paint(fmt.Sprintf("[FOUND!] Series '%s' S%sE%s has %d streams:", dup.SeriesName, dup.Season, dup.Episode, len(dup.Streams)), ansiYellow, colorize))
		for _, stream := range dup.Streams {
			fmt.Fprintf(out, "   - Stream ID: %s, Ext: %s\n", stream.StreamID, stream.Container)
		}
	}
	for _, failure := range report.Errors {
		fmt.Fprintln(out, renderStatusLine("Series "+failure.SeriesID, statusWarn, failure.Error, colorize))
	}

	fmt.Fprintln(out)
	if len(report.Duplicates) == 0 {
		fmt.Fprintf(out, "No duplicates found in the first %d series of the raw feed.\n", report.ScannedSeries)
		fmt.Fprintln(out, "Duplicate streams, if any, are introduced after import rather than by the provider.")
		return
	}
	fmt.Fprintf(out, "Found %d duplicate episode slot(s) across %d scanned series.\n", len(report.Duplicates), report.ScannedSeries)
	fmt.Fprintln(out, "The provider itself lists several stream ids for these episodes.")
}
