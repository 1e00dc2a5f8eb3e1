// Package softenc implements the in-process software export engine. Frames
// are rendered and JPEG-compressed by a single producer goroutine feeding a
// bounded pipeline, then muxed with per-frame PCM into a Matroska file. No
// external binary or native library is involved, so the engine works in
// sandboxed environments where spawning an encoder process is not allowed.
package softenc

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"os"

	"clipforge/internal/container"
	"clipforge/internal/engine"
	"clipforge/internal/logging"
	"clipforge/internal/render"
	"clipforge/internal/services"
)

// The pipeline never buffers more than this many compressed frames, even
// when the configured memory ceiling would allow it.
const maxPipelineDepth = 8

// Minimum RAM before the in-process encoder bows out of selection.
const minRAMMiB = 512

var jpegQuality = map[string]int{
	"low":    60,
	"medium": 80,
	"high":   92,
}

// Options configures the engine.
type Options struct {
	FrameMemoryMiB int
	Logger         *slog.Logger
}

// Engine encodes entirely in-process.
type Engine struct {
	memoryMiB int
	logger    *slog.Logger
}

func New(opts Options) *Engine {
	return &Engine{
		memoryMiB: opts.FrameMemoryMiB,
		logger:    logging.NewComponentLogger(opts.Logger, "softenc"),
	}
}

func (e *Engine) Kind() engine.Kind { return engine.KindSoftwareEncoder }

func (e *Engine) Supported(profile engine.CapabilityProfile) bool {
	if profile.EstimatedRAMMiB > 0 && profile.EstimatedRAMMiB < minRAMMiB {
		return false
	}
	return true
}

func (e *Engine) Init(ctx context.Context) error { return nil }

func (e *Engine) Close() error { return nil }

type encodedFrame struct {
	index int
	data  []byte
}

// Encode renders, compresses and muxes every frame in timestamp order. The
// output is always Matroska with MJPEG video and float PCM audio, which the
// coordinator surfaces as a container deviation when the job asked for
// something else.
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

	total := settings.FrameCount()
	quality := jpegQuality[settings.Quality]
	if quality == 0 {
		quality = jpegQuality["medium"]
	}

	pipelineCtx, stopProducer := context.WithCancel(ctx)
	defer stopProducer()

	frames := make(chan encodedFrame, e.pipelineDepth(settings))
	producerErr := make(chan error, 1)
	go func() {
		defer close(frames)
		producerErr <- e.produceFrames(pipelineCtx, settings, capture.Frames, quality, total, frames)
	}()

	muxed, err := e.muxFrames(ctx, settings, capture, writer, frames, total, progress)
	if err != nil {
		stopProducer()
		for range frames {
			// Drain so the producer can exit.
		}
		<-producerErr
		writer.Close()
		os.Remove(settings.OutputPath)
		return engine.Result{}, err
	}
	if err := <-producerErr; err != nil {
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
		FramesEncoded: muxed,
		Container:     "mkv",
	}, nil
}

// pipelineDepth bounds in-flight compressed frames by the configured memory
// ceiling, assuming worst-case JPEG output near the raw frame size.
func (e *Engine) pipelineDepth(settings engine.Settings) int {
	if e.memoryMiB <= 0 {
		return maxPipelineDepth
	}
	frameBytes := settings.Width * settings.Height * 4
	if frameBytes <= 0 {
		return 1
	}
	depth := (e.memoryMiB * 1024 * 1024) / frameBytes
	if depth < 1 {
		return 1
	}
	if depth > maxPipelineDepth {
		return maxPipelineDepth
	}
	return depth
}

func (e *Engine) produceFrames(ctx context.Context, settings engine.Settings, producer engine.FrameProducer, quality, total int, out chan<- encodedFrame) error {
	buf, err := render.NewFrameBuffer(settings.Width, settings.Height)
	if err != nil {
		return services.Wrap(services.ErrValidation, "softenc", "render", "invalid frame dimensions", err)
	}
	img := &image.RGBA{
		Pix:    buf.Pix,
		Stride: settings.Width * 4,
		Rect:   image.Rect(0, 0, settings.Width, settings.Height),
	}
	var scratch bytes.Buffer
	opts := &jpeg.Options{Quality: quality}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCancelled, "softenc", "render", "frame rendering cancelled", err)
		}
		producer.RenderFrame(float64(i)/float64(settings.FPS), buf)

		scratch.Reset()
		if err := jpeg.Encode(&scratch, img, opts); err != nil {
			return services.Wrap(services.ErrEngineInit, "softenc", "render", "compressing frame", err)
		}
		data := make([]byte, scratch.Len())
		copy(data, scratch.Bytes())

		select {
		case out <- encodedFrame{index: i, data: data}:
		case <-ctx.Done():
			return services.Wrap(services.ErrCancelled, "softenc", "render", "frame rendering cancelled", ctx.Err())
		}
	}
	return nil
}

func (e *Engine) muxFrames(ctx context.Context, settings engine.Settings, capture *engine.Capture, writer *container.Writer, frames <-chan encodedFrame, total int, progress func(float64)) (int, error) {
	frameDur := 1 / float64(settings.FPS)
	muxed := 0
	for frame := range frames {
		if err := ctx.Err(); err != nil {
			return muxed, services.Wrap(services.ErrCancelled, "softenc", "mux", "encode cancelled", err)
		}
		ts := float64(frame.index) * frameDur
		tsMs := int64(ts * 1000)

		// Every MJPEG frame is independently decodable.
		if err := writer.WriteVideo(true, tsMs, frame.data); err != nil {
			return muxed, err
		}
		pcm := capture.Audio.MixRange(ts, ts+frameDur)
		if len(pcm) > 0 {
			if err := writer.WriteAudio(tsMs, container.PCMBytes(pcm)); err != nil {
				return muxed, err
			}
		}
		muxed++
		progress(float64(muxed) / float64(total))
	}
	return muxed, nil
}
