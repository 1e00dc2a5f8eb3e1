// Package preflight provides readiness checks for the filesystem paths and
// external binaries an export run depends on.
//
// The daemon runs RunAll before picking up each queued job; a failed
// required check halts the lane instead of starting a doomed encode. The
// CLI status command reuses the individual checks for display.
package preflight
