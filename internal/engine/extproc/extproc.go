// Package extproc implements the external-process export engine. It stages
// frames and mixed audio on disk, then hands the encode to the FFmpeg binary
// and reports its progress stream back as job progress.
package extproc

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/audio"
	"clipforge/internal/engine"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
)

// Frame staging takes the first portion of the progress range, the encode
// subprocess the rest.
const renderShare = 0.4

// Options configures the engine.
type Options struct {
	Client         *ffmpeg.Client
	StagingDir     string
	QualityPresets map[string]string // preset name -> CRF
	EncodeTimeout  time.Duration
	Logger         *slog.Logger
}

// Engine drives FFmpeg as a child process.
type Engine struct {
	client  *ffmpeg.Client
	staging string
	presets map[string]string
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs the engine. The staging directory must exist.
func New(opts Options) *Engine {
	client := opts.Client
	if client == nil {
		client = ffmpeg.NewClient()
	}
	return &Engine{
		client:  client,
		staging: opts.StagingDir,
		presets: opts.QualityPresets,
		timeout: opts.EncodeTimeout,
		logger:  logging.NewComponentLogger(opts.Logger, "extproc"),
	}
}

func (e *Engine) Kind() engine.Kind { return engine.KindExternalProcess }

func (e *Engine) Supported(profile engine.CapabilityProfile) bool {
	return profile.HasNativeEncoder
}

// Init verifies the encoder binary is still reachable. Discovery can go
// stale between profile detection and job start.
func (e *Engine) Init(ctx context.Context) error {
	if !e.client.Available() {
		return services.Wrap(services.ErrEngineInit, "extproc", "init",
			"FFmpeg binary not found on PATH; check ffmpeg.binary in config", nil)
	}
	return nil
}

func (e *Engine) Close() error { return nil }

// Encode stages every frame and the premixed audio under a per-job temp
// directory, runs FFmpeg over the sequence, and removes the directory on
// every exit path.
func (e *Engine) Encode(ctx context.Context, settings engine.Settings, capture *engine.Capture, progress func(float64)) (engine.Result, error) {
	if progress == nil {
		progress = func(float64) {}
	}

	workDir := filepath.Join(e.staging, "export-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return engine.Result{}, services.Wrap(services.ErrEngineInit, "extproc", "stage",
			"creating staging directory", err)
	}
	defer os.RemoveAll(workDir)

	frames, err := e.stageFrames(ctx, workDir, settings, capture.Frames, progress)
	if err != nil {
		return engine.Result{}, err
	}

	audioPath, err := e.stageAudio(workDir, capture.Audio)
	if err != nil {
		return engine.Result{}, err
	}

	// Encode into the staging directory and only publish the file to the
	// requested path after a verified copy, so callers never observe a
	// half-written output.
	encodePath := filepath.Join(workDir, "output."+settings.Format)
	req := ffmpeg.EncodeRequest{
		FramePattern: filepath.Join(workDir, "frame_%05d.png"),
		FPS:          settings.FPS,
		Width:        settings.Width,
		Height:       settings.Height,
		AudioFiles:   []ffmpeg.AudioInput{{Path: audioPath}},
		Format:       settings.Format,
		CRF:          e.presets[settings.Quality],
		Duration:     settings.Duration,
		OutputPath:   encodePath,
	}

	encodeCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	err = e.client.EncodeSequence(encodeCtx, req, func(update ffmpeg.ProgressUpdate) {
		if settings.Duration <= 0 {
			return
		}
		fraction := update.OutTimeSeconds / settings.Duration
		if fraction > 1 {
			fraction = 1
		}
		if fraction > 0 {
			progress(renderShare + (1-renderShare)*fraction)
		}
	})
	if err != nil {
		// The encode failed after staging succeeded; the deferred
		// cleanup still removes the partial frame set.
		return engine.Result{}, err
	}

	if err := fileutil.PublishFile(encodePath, settings.OutputPath); err != nil {
		return engine.Result{}, services.Wrap(services.ErrSubprocess, "extproc", "finalize",
			"publishing encoded output", err)
	}

	progress(1)
	return engine.Result{
		OutputPath:    settings.OutputPath,
		FramesEncoded: frames,
		Container:     settings.Format,
	}, nil
}

func (e *Engine) stageFrames(ctx context.Context, workDir string, settings engine.Settings, frames engine.FrameProducer, progress func(float64)) (int, error) {
	buf, err := render.NewFrameBuffer(settings.Width, settings.Height)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "extproc", "stage", "invalid frame dimensions", err)
	}
	img := &image.RGBA{
		Pix:    buf.Pix,
		Stride: settings.Width * 4,
		Rect:   image.Rect(0, 0, settings.Width, settings.Height),
	}
	total := settings.FrameCount()
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return 0, services.Wrap(services.ErrCancelled, "extproc", "stage", "frame staging cancelled", err)
		}
		frames.RenderFrame(float64(i)/float64(settings.FPS), buf)

		path := filepath.Join(workDir, fmt.Sprintf("frame_%05d.png", i))
		file, err := os.Create(path)
		if err != nil {
			return 0, services.Wrap(services.ErrEngineInit, "extproc", "stage", "creating frame file", err)
		}
		if err := png.Encode(file, img); err != nil {
			file.Close()
			return 0, services.Wrap(services.ErrEngineInit, "extproc", "stage", "encoding frame", err)
		}
		if err := file.Close(); err != nil {
			return 0, services.Wrap(services.ErrEngineInit, "extproc", "stage", "flushing frame file", err)
		}
		progress(renderShare * float64(i+1) / float64(total))
	}
	return total, nil
}

func (e *Engine) stageAudio(workDir string, mixer *audio.Mixer) (string, error) {
	path := filepath.Join(workDir, "audio.wav")
	file, err := os.Create(path)
	if err != nil {
		return "", services.Wrap(services.ErrEngineInit, "extproc", "stage", "creating audio file", err)
	}
	defer file.Close()
	if err := audio.EncodeWAV(file, mixer.MixAll()); err != nil {
		return "", services.Wrap(services.ErrEngineInit, "extproc", "stage", "writing mixed audio", err)
	}
	return path, nil
}
