package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Tail the daemon log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "clipforge.log")

			batch, err := logs.Tail(cmd.Context(), logPath, logs.Options{
				Offset: -1,
				Limit:  lines,
				JobID:  jobID,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range batch.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			offset := batch.Offset
			for {
				batch, err := logs.Tail(cmd.Context(), logPath, logs.Options{
					Offset: offset,
					JobID:  jobID,
					Follow: true,
					Wait:   time.Second,
				})
				if err != nil {
					return err
				}
				for _, line := range batch.Lines {
					fmt.Fprintln(out, line)
				}
				offset = batch.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show lines for one export job")
	return cmd
}
