// Package queue persists export jobs in SQLite so the daemon can survive
// restarts: queued work is picked up again and in-flight jobs are reset
// rather than left dangling.
package queue
