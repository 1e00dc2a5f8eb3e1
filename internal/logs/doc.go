// Package logs reads the daemon's structured log file back for the CLI.
//
// It supports "last N lines" reads, offset-based resumption for follow mode,
// and filtering to a single export job via the job_id field the daemon
// attaches to its log lines. Callers supply context deadlines so follow
// polling shuts down cleanly when `clipforge logs --follow` exits.
package logs
