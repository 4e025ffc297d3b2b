package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vodaudit/internal/deps"
	"vodaudit/internal/services"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check that external binaries are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg.FFprobeBinary()))
			missing := deps.Missing(statuses)

			if jsonOut {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, "Dependencies")
				for _, status := range statuses {
					kind := statusOK
					message := status.Command
					switch {
					case !status.Available && status.Optional:
						kind, message = statusWarn, status.Detail
					case !status.Available:
						kind, message = statusError, status.Detail
					}
					fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
				}
			}
			if len(missing) > 0 {
				return services.Wrap(services.ErrExternalTool, "deps", "check", fmt.Sprintf("%d required binary(ies) missing", len(missing)), nil)
			}
			return nil
		},
	}
	addJSONFlag(cmd, &jsonOut)
	return cmd
}
