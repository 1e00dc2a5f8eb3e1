// Package timeline models the frozen, already-resolved edit the export
// pipeline consumes.
//
// Elements arrive from the editing collaborator with timing, trim, and volume
// already decided; this package validates them, freezes them into an
// immutable Snapshot, and answers the one query rendering needs: which
// elements are active at a given timestamp, in ascending track order. Media
// bytes are reached through a Resolver so the pipeline never fetches or
// caches media itself.
package timeline
