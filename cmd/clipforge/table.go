package main

import (
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"clipforge/internal/ipc"
)

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// renderJobsTable lays out export jobs the way `clipforge jobs` prints them.
func renderJobsTable(jobs []ipc.JobSummary) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Progress", "Backend", "Created"})
	for _, job := range jobs {
		tw.AppendRow(table.Row{
			shortID(job.JobID),
			job.Title,
			job.Status,
			formatProgress(job.Progress),
			job.Backend,
			job.CreatedAt.Local().Format(time.DateTime),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// renderQueueStats lays out per-status job counts for `clipforge status`.
func renderQueueStats(stats map[string]int) string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Status", "Count"})
	for _, name := range names {
		tw.AppendRow(table.Row{name, stats[name]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
