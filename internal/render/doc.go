// Package render produces composited output frames from a frozen timeline
// snapshot.
//
// FrameSource resolves visual elements once up front, then renders any
// timestamp on demand: active elements are drawn in ascending track order
// with their transform applied, into a caller-owned reusable RGBA buffer.
// Rendering the same timestamp twice yields bit-identical output, which the
// encode backends rely on for retries and for splitting work across frame
// batches. A visual source that fails to resolve degrades to nothing drawn
// for its window and is reported as a warning, not a job failure.
package render
