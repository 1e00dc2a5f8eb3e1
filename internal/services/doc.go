// Package services defines the error taxonomy and context annotations shared
// by the export pipeline components.
//
// Sentinel errors classify failures for coordinator handling: per-source
// decode problems degrade to warnings, subprocess and timeout failures are
// fatal, and cancellation is recognized without being reported as an error.
// Wrap attaches component/operation context plus a human-readable message so
// surfaced errors carry both an operator summary and the low-level diagnostic.
package services
