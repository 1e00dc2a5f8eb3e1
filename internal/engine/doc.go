// Package engine defines the shared contract for the interchangeable encode
// backends and the selector that picks one per job.
//
// An Engine advertises support against a per-job capability profile, is
// initialized once, and then encodes one job from a capture (frame producer
// plus audio mixer) into a single muxed file. The Selector walks a preference
// order: unsupported candidates are skipped, initialization failures advance
// to the next candidate with a degraded-mode warning, and the stream-recorder
// baseline always reports supported so selection itself never fails.
package engine
