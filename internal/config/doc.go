// Package config loads, validates, and defaults the TOML configuration that
// drives the export pipeline.
//
// Config is split into sections mirroring the subsystems: paths, logging,
// ffmpeg, audio, export, and workflow. Load applies defaults before merging
// the user file so new keys always have sensible values, expands ~ in paths,
// and validates the result. EnsureDirectories creates the staging, output,
// and log directories on demand.
package config
