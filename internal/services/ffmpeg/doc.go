// Package ffmpeg wraps the external FFmpeg binary for out-of-process
// encoding and audio decoding.
//
// The client builds argument lists for image-sequence encodes with offset
// audio inputs, streams the binary's -progress key=value output into
// callbacks, and captures stderr so non-zero exits surface with a useful
// diagnostic. Command construction is pure and unit-tested; process execution
// funnels through a replaceable commandContext hook so tests never need the
// real binary.
package ffmpeg
