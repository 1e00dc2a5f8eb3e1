package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and detected capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				printStatus(cmd, resp)
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func printStatus(cmd *cobra.Command, status *ipc.StatusResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running:        %s\n", yesNo(status.Running))
	if status.Running {
		fmt.Fprintf(out, "PID:            %d\n", status.PID)
	}
	fmt.Fprintf(out, "Queue DB:       %s\n", status.QueueDBPath)
	fmt.Fprintf(out, "Lock file:      %s\n", status.LockPath)
	fmt.Fprintf(out, "Native encoder: %s\n", yesNo(status.HasNativeEncoder))
	if status.EstimatedRAMMiB > 0 {
		fmt.Fprintf(out, "Estimated RAM:  %d MiB\n", status.EstimatedRAMMiB)
	}
	fmt.Fprintf(out, "Backend order:  %s\n", strings.Join(status.BackendOrder, " > "))
	if status.LastError != "" {
		fmt.Fprintf(out, "Last error:     %s\n", status.LastError)
	}

	if len(status.QueueStats) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderQueueStats(status.QueueStats))
	}

	if status.Active != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Active job %s (%s): %s %s\n",
			shortID(status.Active.JobID),
			status.Active.Title,
			status.Active.Status,
			formatProgress(status.Active.Progress))
	}
}
