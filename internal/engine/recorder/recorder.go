// Package recorder implements the stream-recorder export engine, the
// guaranteed baseline every preference order falls back to. It plays the
// timeline as a stream of short timeslices, recording rendered frames and
// pulled audio into a Matroska file. It has no environment requirements, so
// Supported always reports true.
package recorder

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"time"

	"clipforge/internal/audio"
	"clipforge/internal/container"
	"clipforge/internal/engine"
	"clipforge/internal/logging"
	"clipforge/internal/render"
	"clipforge/internal/services"
)

// Each timeslice covers this much of the timeline.
const sliceSeconds = 0.25

const recordQuality = 80

// Options configures the engine.
type Options struct {
	// Realtime paces recording at playback speed, mimicking a capture of
	// a live stream. Off by default; batch exports run as fast as the
	// renderer allows.
	Realtime bool
	Logger   *slog.Logger
}

// Engine records the timeline slice by slice.
type Engine struct {
	realtime bool
	logger   *slog.Logger
}

func New(opts Options) *Engine {
	return &Engine{
		realtime: opts.Realtime,
		logger:   logging.NewComponentLogger(opts.Logger, "recorder"),
	}
}

func (e *Engine) Kind() engine.Kind { return engine.KindStreamRecorder }

// Supported always holds; the recorder is the fallback of last resort.
func (e *Engine) Supported(engine.CapabilityProfile) bool { return true }

func (e *Engine) Init(ctx context.Context) error { return nil }

func (e *Engine) Close() error { return nil }

// Encode records the whole timeline. Cancellation discards the partial
// output and releases the audio graph before returning.
func (e *Engine) Encode(ctx context.Context, settings engine.Settings, capture *engine.Capture, progress func(float64)) (engine.Result, error) {
	if progress == nil {
		progress = func(float64) {}
	}

	writer, err := container.NewWriter(settings.OutputPath,
		container.VideoTrack{Width: settings.Width, Height: settings.Height, CodecID: container.CodecMJPEG},
		&container.AudioTrack{
			SampleRate: capture.Audio.SampleRate(),
			Channels:   capture.Audio.Channels(),
			CodecID:    container.CodecPCMFloat,
		})
	if err != nil {
		return engine.Result{}, err
	}

	graph := capture.Audio.LiveGraph()
	defer graph.Release()

	recorded, err := e.record(ctx, settings, capture.Frames, graph, capture.Audio.SampleRate(), writer, progress)
	if err != nil {
		writer.Close()
		os.Remove(settings.OutputPath)
		return engine.Result{}, err
	}
	if err := writer.Close(); err != nil {
		os.Remove(settings.OutputPath)
		return engine.Result{}, err
	}

	progress(1)
	return engine.Result{
		OutputPath:    settings.OutputPath,
		FramesEncoded: recorded,
		Container:     "mkv",
	}, nil
}

func (e *Engine) record(ctx context.Context, settings engine.Settings, frames engine.FrameProducer, graph *audio.LiveGraph, sampleRate int, writer *container.Writer, progress func(float64)) (int, error) {
	buf, err := render.NewFrameBuffer(settings.Width, settings.Height)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "recorder", "record", "invalid frame dimensions", err)
	}
	img := &image.RGBA{
		Pix:    buf.Pix,
		Stride: settings.Width * 4,
		Rect:   image.Rect(0, 0, settings.Width, settings.Height),
	}
	var scratch bytes.Buffer
	opts := &jpeg.Options{Quality: recordQuality}

	total := settings.FrameCount()
	recorded := 0

	var pacer *time.Ticker
	if e.realtime {
		pacer = time.NewTicker(time.Duration(sliceSeconds * float64(time.Second)))
		defer pacer.Stop()
	}

	for sliceStart := 0.0; recorded < total; sliceStart += sliceSeconds {
		if err := ctx.Err(); err != nil {
			return recorded, services.Wrap(services.ErrCancelled, "recorder", "record", "recording cancelled", err)
		}

		sliceEnd := sliceStart + sliceSeconds
		if sliceEnd > settings.Duration {
			sliceEnd = settings.Duration
		}

		for ; recorded < total; recorded++ {
			ts := float64(recorded) / float64(settings.FPS)
			if ts >= sliceEnd {
				break
			}
			frames.RenderFrame(ts, buf)
			scratch.Reset()
			if err := jpeg.Encode(&scratch, img, opts); err != nil {
				return recorded, services.Wrap(services.ErrEngineInit, "recorder", "record", "compressing frame", err)
			}
			if err := writer.WriteVideo(true, int64(ts*1000), scratch.Bytes()); err != nil {
				return recorded, err
			}
		}

		sliceFrames := int((sliceEnd - sliceStart) * float64(sampleRate))
		if pcm := graph.Pull(sliceFrames); len(pcm) > 0 {
			if err := writer.WriteAudio(int64(sliceStart*1000), container.PCMBytes(pcm)); err != nil {
				return recorded, err
			}
		}

		progress(sliceEnd / settings.Duration)

		if pacer != nil {
			select {
			case <-pacer.C:
			case <-ctx.Done():
				return recorded, services.Wrap(services.ErrCancelled, "recorder", "record", "recording cancelled", ctx.Err())
			}
		}
	}
	return recorded, nil
}
