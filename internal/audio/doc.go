// Package audio decodes, schedules, and mixes every audio-bearing timeline
// element onto one shared output timeline.
//
// Prepare resolves each source to interleaved PCM under a bounded decode
// timeout; a failed source degrades to silence for its window and is recorded
// as a warning unless strict mode is enabled. MixRange serves the pre-mix
// backends with gain-scaled additive mixing clipped to [-1,1]; LiveGraph
// serves the streaming-recorder backend with the same samples pulled
// incrementally. Jobs with zero audio elements still produce a silent track
// spanning the full duration so exported files always carry an audio stream.
//
// Decoded PCM is cached per source key and shared read-only across jobs;
// only one decode per key runs at a time.
package audio
