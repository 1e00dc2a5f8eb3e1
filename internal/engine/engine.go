package engine

import (
	"context"

	"clipforge/internal/audio"
	"clipforge/internal/render"
)

// Kind names one encode backend strategy.
type Kind string

const (
	KindExternalProcess Kind = "external-process"
	KindSoftwareEncoder Kind = "software-encoder"
	KindStreamRecorder  Kind = "stream-recorder"
)

// Settings carries the per-job export parameters engines need.
type Settings struct {
	Width      int
	Height     int
	FPS        int
	Format     string // "mp4" or "webm"
	Quality    string // named preset: low, medium, high
	Duration   float64
	OutputPath string
}

// FrameCount returns the number of frames the job spans.
func (s Settings) FrameCount() int {
	return int(s.Duration * float64(s.FPS))
}

// FrameProducer renders one composited frame for a timestamp into a reusable
// buffer. Implementations must be deterministic per timestamp.
type FrameProducer interface {
	RenderFrame(timestampSeconds float64, dst *render.FrameBuffer)
}

// Capture bundles the inputs an engine consumes: deterministic frames plus
// the prepared audio mixer. Each engine shapes these into what it needs (a
// live stream, a frame+PCM sequence, or files on disk).
type Capture struct {
	Frames FrameProducer
	Audio  *audio.Mixer
}

// Result describes a finished encode.
type Result struct {
	OutputPath    string
	FramesEncoded int
	// Container is the actual container family written. Fallback engines
	// may deviate from the requested format; the coordinator surfaces that
	// as a job warning.
	Container string
}

// Engine is one interchangeable export execution strategy.
type Engine interface {
	Kind() Kind
	// Supported is a pure predicate over the capability profile.
	Supported(profile CapabilityProfile) bool
	// Init acquires the engine's resources. Failure here makes the
	// selector advance to the next candidate.
	Init(ctx context.Context) error
	// Encode runs the whole encode for one job. Frames are consumed in
	// strictly non-decreasing timestamp order; progress is reported in
	// [0,1]. Engines own their scratch resources and must release them on
	// every exit path, including cancellation.
	Encode(ctx context.Context, settings Settings, capture *Capture, progress func(float64)) (Result, error)
	Close() error
}
