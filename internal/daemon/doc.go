// Package daemon runs the background export service: it enforces
// single-instance execution with a file lock, drains the persisted job
// queue one encode at a time, and exposes control operations for the IPC
// layer (status, enqueue, cancel, queue maintenance, encode sessions).
package daemon
