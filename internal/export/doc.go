// Package export owns the export job state machine and the coordinator that
// drives a job from a frozen timeline to a finished file: preparing the
// audio mixer and frame source, selecting a backend engine, running the
// encode, and guaranteeing teardown on every exit path.
package export
