package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/ipc"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and maintain the export queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(cmd, ctx, nil)
		},
	}

	var statuses []string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List export jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsList(cmd, ctx, statuses)
		},
	}
	listCmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (queued, encoding, completed, ...)")

	showCmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show full details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobDescribe(args[0])
				if err != nil {
					return err
				}
				printJobDetail(cmd, resp.Job)
				return nil
			})
		},
	}

	clearCompletedCmd := &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearCompleted()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed job(s)\n", resp.Removed)
				return nil
			})
		},
	}

	clearFailedCmd := &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearFailed()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed job(s)\n", resp.Removed)
				return nil
			})
		},
	}

	jobsCmd.AddCommand(listCmd, showCmd, clearCompletedCmd, clearFailedCmd)
	return jobsCmd
}

func runJobsList(cmd *cobra.Command, ctx *commandContext, statuses []string) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.JobList(statuses)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(resp.Jobs) == 0 {
			fmt.Fprintln(out, "No export jobs")
			return nil
		}
		fmt.Fprintln(out, renderJobsTable(resp.Jobs))
		return nil
	})
}

func printJobDetail(cmd *cobra.Command, job ipc.JobSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:      %s\n", job.JobID)
	fmt.Fprintf(out, "Title:    %s\n", job.Title)
	fmt.Fprintf(out, "Status:   %s\n", job.Status)
	fmt.Fprintf(out, "Progress: %s\n", formatProgress(job.Progress))
	if job.Backend != "" {
		fmt.Fprintf(out, "Backend:  %s\n", job.Backend)
	}
	if job.OutputPath != "" {
		fmt.Fprintf(out, "Output:   %s\n", job.OutputPath)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", job.Error)
	}
	for _, warning := range job.Warnings {
		fmt.Fprintf(out, "Warning:  %s\n", warning)
	}
	fmt.Fprintf(out, "Created:  %s\n", job.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Updated:  %s\n", job.UpdatedAt.Local().Format(time.DateTime))
}

func shortID(jobID string) string {
	if idx := strings.IndexByte(jobID, '-'); idx > 0 {
		return jobID[:idx]
	}
	return jobID
}

func formatProgress(progress float64) string {
	return fmt.Sprintf("%.1f%%", progress*100)
}
