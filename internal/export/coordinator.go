package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/audio"
	"clipforge/internal/engine"
	"clipforge/internal/logging"
	"clipforge/internal/render"
	"clipforge/internal/services"
	"clipforge/internal/timeline"
)

// Encode covers this share of the job progress range; the remainder is the
// muxing pass and final completion.
const encodeShare = 0.98

// Options configures a Coordinator.
type Options struct {
	Resolver timeline.Resolver
	Engines  []engine.Engine
	Order    []engine.Kind
	Profile  engine.CapabilityProfile

	AudioSampleRate    int
	AudioChannels      int
	AudioDecodeTimeout time.Duration
	AudioStrict        bool
	AudioDecode        audio.DecodeFunc
	AudioCache         *audio.DecodeCache

	ProgressMinInterval time.Duration
	Logger              *slog.Logger
}

// Coordinator runs export jobs. At most one job encodes at a time; a second
// Run while one is active is rejected rather than interleaved.
type Coordinator struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	active *Job
}

// NewCoordinator constructs a coordinator.
func NewCoordinator(opts Options) *Coordinator {
	if opts.AudioSampleRate <= 0 {
		opts.AudioSampleRate = 48000
	}
	if opts.AudioChannels <= 0 {
		opts.AudioChannels = 2
	}
	if opts.AudioCache == nil {
		opts.AudioCache = audio.NewDecodeCache()
	}
	return &Coordinator{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "export"),
	}
}

// Active returns the currently running job, nil when idle.
func (c *Coordinator) Active() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Run drives one job to a terminal state. It returns a non-nil error only
// when the job Failed; cancellation settles the job as Cancelled and
// returns nil, because a user-requested stop is not a failure.
func (c *Coordinator) Run(ctx context.Context, job *Job, elements []timeline.Element, onProgress ProgressFunc) error {
	if err := validateSettings(job.Settings()); err != nil {
		job.fail(err)
		job.closeDone()
		return err
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		err := services.Wrap(services.ErrValidation, "export", "run",
			fmt.Sprintf("job %s is already encoding", c.active.ID()), nil)
		job.fail(err)
		job.closeDone()
		return err
	}
	c.active = job
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.active = nil
		c.mu.Unlock()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !job.bind(cancel) {
		// Cancelled before it ever started.
		return nil
	}
	defer job.closeDone()

	rep := newReporter(onProgress, c.opts.ProgressMinInterval)
	err := c.run(runCtx, job, elements, rep)
	switch {
	case err == nil:
		rep.finish(StateCompleted)
		return nil
	case services.IsCancellation(err) || job.cancelRequested():
		job.markCancelled()
		c.logger.Info("export cancelled", logging.JobID(job.ID()))
		rep.finish(StateCancelled)
		return nil
	default:
		job.fail(err)
		c.logger.Error("export failed",
			logging.JobID(job.ID()),
			logging.Error(err))
		rep.finish(StateFailed)
		return err
	}
}

func (c *Coordinator) run(ctx context.Context, job *Job, elements []timeline.Element, rep *reporter) error {
	settings := job.Settings()
	logger := c.logger.With(logging.JobID(job.ID()))

	job.setState(StatePreparing)
	rep.report(0, StatePreparing)
	logger.Info("export starting",
		logging.String("format", settings.Format),
		logging.Float64("duration", settings.Duration))

	snapshot, err := timeline.Freeze(elements)
	if err != nil {
		return services.Wrap(services.ErrValidation, "export", "prepare", "invalid timeline", err)
	}

	frameSrc := render.NewFrameSource(snapshot, c.opts.Resolver, logger)
	if err := frameSrc.Prepare(ctx); err != nil {
		return err
	}

	mixer := audio.NewMixer(audio.MixerOptions{
		SampleRate:    c.opts.AudioSampleRate,
		Channels:      c.opts.AudioChannels,
		Duration:      settings.Duration,
		DecodeTimeout: c.opts.AudioDecodeTimeout,
		Strict:        c.opts.AudioStrict,
		Resolver:      c.opts.Resolver,
		Cache:         c.opts.AudioCache,
		Decode:        c.opts.AudioDecode,
		Logger:        logger,
	})
	defer mixer.Release()
	if err := mixer.Prepare(ctx, snapshot.AudioElements()); err != nil {
		return err
	}

	selector := engine.NewSelector(c.opts.Profile, c.opts.Order, c.opts.Engines, logger)
	eng, err := selector.Select(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()
	job.setBackend(eng.Kind())

	job.setState(StateEncoding)
	capture := &engine.Capture{Frames: frameSrc, Audio: mixer}
	result, err := eng.Encode(ctx, settings, capture, func(p float64) {
		scaled := p * encodeShare
		job.setProgress(scaled)
		rep.report(scaled, StateEncoding)
	})
	if err != nil {
		return err
	}

	// All three engines mux internally, so this is a pass-through step; it
	// still surfaces as a distinct state for observers.
	job.setState(StateMuxing)
	job.setProgress(encodeShare)
	rep.report(encodeShare, StateMuxing)

	job.addWarnings(frameSrc.Warnings())
	job.addWarnings(mixer.Warnings())
	job.addWarnings(selector.Warnings())
	if result.Container != settings.Format {
		job.addWarnings([]string{fmt.Sprintf(
			"output container is %s, not the requested %s (fallback backend limitation)",
			result.Container, settings.Format)})
	}

	job.complete(result.OutputPath)
	logger.Info("export completed",
		logging.Backend(string(eng.Kind())),
		logging.Int("frames", result.FramesEncoded),
		logging.String("output", result.OutputPath))
	return nil
}

func validateSettings(settings engine.Settings) error {
	switch {
	case settings.Width <= 0 || settings.Height <= 0:
		return services.Wrap(services.ErrValidation, "export", "validate", "resolution must be positive", nil)
	case settings.FPS <= 0:
		return services.Wrap(services.ErrValidation, "export", "validate", "fps must be positive", nil)
	case settings.Duration <= 0:
		return services.Wrap(services.ErrValidation, "export", "validate", "duration must be positive", nil)
	case settings.Format != "mp4" && settings.Format != "webm":
		return services.Wrap(services.ErrValidation, "export", "validate",
			fmt.Sprintf("unsupported format %q (want mp4 or webm)", settings.Format), nil)
	case settings.OutputPath == "":
		return services.Wrap(services.ErrValidation, "export", "validate", "output path required", nil)
	}
	return nil
}
