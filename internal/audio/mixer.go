package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// DecodeFunc decodes a non-WAV source into PCM at the requested layout.
// The external-process backend plugs ffmpeg decoding in here; tests plug in
// synthetic tone generators.
type DecodeFunc func(ctx context.Context, src timeline.Source, sampleRate, channels int) (*Buffer, error)

// MixerOptions configures a Mixer for one export job.
type MixerOptions struct {
	SampleRate    int
	Channels      int
	Duration      float64 // settings.duration; exact output length
	DecodeTimeout time.Duration
	Strict        bool // fail the job on any source decode failure
	Resolver      timeline.Resolver
	Cache         *DecodeCache
	Decode        DecodeFunc
	Logger        *slog.Logger
}

// sourceHandle schedules one decoded element onto the shared output timeline.
// A nil buffer means the source degraded and its window contributes silence.
type sourceHandle struct {
	elementID string
	buf       *Buffer
	start     float64
	trimIn    float64
	duration  float64
	gain      float32
}

// Mixer decodes and schedules audio-bearing elements, then serves mixed PCM.
type Mixer struct {
	opts   MixerOptions
	logger *slog.Logger

	mu       sync.Mutex
	handles  []sourceHandle
	warnings []string
	prepared bool
	released bool
}

// NewMixer constructs a mixer. Prepare must run before MixRange or LiveGraph.
func NewMixer(opts MixerOptions) *Mixer {
	if opts.Cache == nil {
		opts.Cache = NewDecodeCache()
	}
	if opts.DecodeTimeout <= 0 {
		opts.DecodeTimeout = 10 * time.Second
	}
	return &Mixer{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "audio"),
	}
}

// Duration returns the exact length of the mixed output in seconds. Jobs with
// zero audio elements still get this full span of silence.
func (m *Mixer) Duration() float64 {
	return m.opts.Duration
}

// SampleRate returns the output sample rate in Hz.
func (m *Mixer) SampleRate() int { return m.opts.SampleRate }

// Channels returns the output channel count.
func (m *Mixer) Channels() int { return m.opts.Channels }

// Warnings returns degradation messages recorded during Prepare.
func (m *Mixer) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warnings...)
}

// Prepare decodes every audio-bearing element. A single source failing or
// exceeding the decode timeout degrades that source's window to silence and
// records a warning; under strict mode it fails the job instead.
func (m *Mixer) Prepare(ctx context.Context, elements []timeline.Element) error {
	m.mu.Lock()
	if m.prepared {
		m.mu.Unlock()
		return fmt.Errorf("mixer already prepared")
	}
	m.mu.Unlock()

	for _, element := range elements {
		if !element.HasAudio() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, err := m.decodeSource(ctx, element)
		if err != nil {
			wrapped := services.Wrap(services.ErrSourceDecode, "audio", "decode source",
				fmt.Sprintf("Audio source %s could not be decoded", element.SourceRef), err)
			if m.opts.Strict {
				return wrapped
			}
			m.mu.Lock()
			m.warnings = append(m.warnings,
				fmt.Sprintf("audio %s degraded to silence: %v", element.ID, err))
			m.mu.Unlock()
			m.logger.Warn("audio source degraded to silence",
				logging.SourceID(element.ID),
				logging.Error(err),
			)
			buf = nil
		}
		m.mu.Lock()
		m.handles = append(m.handles, sourceHandle{
			elementID: element.ID,
			buf:       buf,
			start:     element.StartTime,
			trimIn:    element.TrimIn,
			duration:  element.Duration,
			gain:      float32(element.EffectiveVolume()),
		})
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.prepared = true
	m.mu.Unlock()
	return nil
}

func (m *Mixer) decodeSource(ctx context.Context, element timeline.Element) (*Buffer, error) {
	dctx, cancel := context.WithTimeout(ctx, m.opts.DecodeTimeout)
	defer cancel()

	type result struct {
		buf *Buffer
		err error
	}
	ch := make(chan result, 1)
	go func() {
		buf, err := m.opts.Cache.GetOrDecode(dctx, element.SourceRef, func(cctx context.Context) (*Buffer, error) {
			return m.decodeOne(cctx, element.SourceRef)
		})
		ch <- result{buf: buf, err: err}
	}()

	select {
	case <-dctx.Done():
		// The decode may still fill the cache for a later retry; this
		// element's window is silence either way.
		return nil, services.Wrap(services.ErrTimeout, "audio", "decode source",
			fmt.Sprintf("decode exceeded %s budget", m.opts.DecodeTimeout), dctx.Err())
	case r := <-ch:
		if r.err != nil {
			m.opts.Cache.Evict(element.SourceRef)
			return nil, r.err
		}
		return r.buf.Conform(m.opts.SampleRate, m.opts.Channels)
	}
}

func (m *Mixer) decodeOne(ctx context.Context, sourceRef string) (*Buffer, error) {
	src, err := m.opts.Resolver.Resolve(ctx, sourceRef)
	if err != nil {
		return nil, err
	}
	data := src.Data
	if data == nil && src.Path != "" {
		data, err = os.ReadFile(src.Path)
		if err != nil {
			return nil, err
		}
	}
	if len(data) >= 4 && bytes.Equal(data[0:4], []byte("RIFF")) {
		return DecodeWAV(bytes.NewReader(data))
	}
	if m.opts.Decode == nil {
		return nil, fmt.Errorf("no decoder available for non-WAV source %s", sourceRef)
	}
	return m.opts.Decode(ctx, src, m.opts.SampleRate, m.opts.Channels)
}

// MixRange produces interleaved PCM for [start, end), additively mixing every
// scheduled source that intersects the window with its gain applied, clipping
// each sample to [-1,1]. Times past the job duration yield silence.
func (m *Mixer) MixRange(start, end float64) []float32 {
	rate := m.opts.SampleRate
	channels := m.opts.Channels
	if end > m.opts.Duration {
		end = m.opts.Duration
	}
	if end <= start {
		return nil
	}
	rangeStart := int(math.Round(start * float64(rate)))
	frames := int(math.Round(end*float64(rate))) - rangeStart
	out := make([]float32, frames*channels)

	m.mu.Lock()
	handles := m.handles
	m.mu.Unlock()

	for _, handle := range handles {
		if handle.buf == nil {
			continue
		}
		m.mixHandle(out, handle, rangeStart, frames)
	}
	return out
}

func (m *Mixer) mixHandle(out []float32, handle sourceHandle, rangeStart, frames int) {
	rate := float64(m.opts.SampleRate)
	channels := m.opts.Channels
	clipStart := int(math.Round(handle.start * rate))
	clipFrames := int(math.Round(handle.duration * rate))
	trimFrames := int(math.Round(handle.trimIn * rate))
	bufFrames := handle.buf.Frames()

	for i := 0; i < frames; i++ {
		abs := rangeStart + i
		offset := abs - clipStart
		if offset < 0 || offset >= clipFrames {
			continue
		}
		src := trimFrames + offset
		if src >= bufFrames {
			break
		}
		for ch := 0; ch < channels; ch++ {
			idx := i*channels + ch
			out[idx] = clampSample(out[idx] + handle.buf.Samples[src*channels+ch]*handle.gain)
		}
	}
}

// MixAll returns the entire job's mixed PCM as one buffer.
func (m *Mixer) MixAll() *Buffer {
	return &Buffer{
		SampleRate: m.opts.SampleRate,
		Channels:   m.opts.Channels,
		Samples:    m.MixRange(0, m.opts.Duration),
	}
}

// Release drops the scheduled source handles. Pulling from a released mixer
// yields silence; Release is idempotent.
func (m *Mixer) Release() {
	m.mu.Lock()
	m.handles = nil
	m.released = true
	m.mu.Unlock()
}

// LiveGraph is the pull-based output used by the streaming-recorder backend.
// Chunks come out sequentially from t=0 to the job duration.
type LiveGraph struct {
	mixer *Mixer
	mu    sync.Mutex
	pos   int // frames consumed
	total int
}

// LiveGraph attaches a sequential consumer to the mixed output.
func (m *Mixer) LiveGraph() *LiveGraph {
	return &LiveGraph{
		mixer: m,
		total: int(math.Round(m.opts.Duration * float64(m.opts.SampleRate))),
	}
}

// Pull mixes the next chunk of up to frames sample frames into a fresh slice.
// It returns nil once the graph is exhausted.
func (g *LiveGraph) Pull(frames int) []float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pos >= g.total || frames <= 0 {
		return nil
	}
	if g.pos+frames > g.total {
		frames = g.total - g.pos
	}
	rate := float64(g.mixer.opts.SampleRate)
	start := float64(g.pos) / rate
	end := float64(g.pos+frames) / rate
	g.pos += frames
	chunk := g.mixer.MixRange(start, end)
	if chunk == nil {
		chunk = make([]float32, frames*g.mixer.opts.Channels)
	}
	return chunk
}

// Remaining reports how many sample frames are left to pull.
func (g *LiveGraph) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total - g.pos
}

// Release detaches the graph and releases the mixer's source handles.
func (g *LiveGraph) Release() {
	g.mu.Lock()
	g.pos = g.total
	g.mu.Unlock()
	g.mixer.Release()
}
