package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vodaudit/internal/logging"
	"vodaudit/internal/streamcompare"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var fromStdin bool
	var jsonOut bool
	var tolerance toleranceFlags

	cmd := &cobra.Command{
		Use:   "compare <url> [url...]",
		Short: "Probe stream URLs and report whether they are the same media",
		Long: "Probe each URL with ffprobe and compare resolution, bitrate, and size against\n" +
			"the first stream that probes successfully. With --stdin, URLs are read one per\n" +
			"line and at least two are required.",
		Args: func(cmd *cobra.Command, args []string) error {
			if fromStdin {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if fromStdin {
				read, err := readURLs(cmd.InOrStdin())
				if err != nil {
					return err
				}
				urls = append(append([]string{}, args...), read...)
				if len(urls) < 2 {
					return errors.New("need at least 2 URLs to compare")
				}
			}

			targets := make([]streamcompare.Target, 0, len(urls))
			for i, url := range urls {
				label := fmt.Sprintf("Stream_%d", i+1)
				if fromStdin {
					label = fmt.Sprintf("Stream %d", i+1)
				}
				targets = append(targets, streamcompare.Target{Label: label, URL: url})
			}

			if !jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "Comparing %d stream(s)...\n\n", len(targets))
			}
			return runComparison(cmd, ctx, targets, tolerance, jsonOut)
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read URLs from stdin, one per line")
	addJSONFlag(cmd, &jsonOut)
	tolerance.register(cmd)
	return cmd
}

func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return urls, nil
}

// runComparison probes targets under the host probe lock and prints the
// verdict. An insufficient comparison is not an error.
func runComparison(cmd *cobra.Command, ctx *commandContext, targets []streamcompare.Target, flags toleranceFlags, jsonOut bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	tolerance, err := flags.resolve(cfg)
	if err != nil {
		return err
	}
	runCtx, runID := ctx.runContext(cmd)
	logger := logging.WithContext(runCtx, ctx.log())

	release, err := acquireProbeLock(runCtx, cfg.LockPath(), logger)
	if err != nil {
		return err
	}
	defer release()

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	analyzer := streamcompare.NewAnalyzer(streamcompare.FFprobeProber{Options: ctx.probeOptions()}, tolerance, logger)
	if !jsonOut {
		analyzer.OnSample = func(target streamcompare.Target, sample streamcompare.Sample) {
			writeSampleProgress(out, target, sample, colorize)
		}
	}

	report, samples, err := analyzer.Run(runCtx, targets)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(cmd, newComparisonOutput(runID, targets, samples, report))
	}
	writeComparison(out, report, colorize)
	return nil
}
