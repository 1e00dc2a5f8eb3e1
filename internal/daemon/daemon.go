package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipforge/internal/audio"
	"clipforge/internal/config"
	"clipforge/internal/engine"
	"clipforge/internal/engine/extproc"
	"clipforge/internal/engine/recorder"
	"clipforge/internal/engine/softenc"
	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/timeline"
)

// Daemon coordinates background export processing and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store

	ffmpegClient *ffmpeg.Client
	coordinator  *export.Coordinator
	engines      []engine.Engine
	order        []engine.Kind
	profile      engine.CapabilityProfile

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	activeJob  *export.Job
	activeItem *queue.Item
	lastError  string

	encodeMu sync.Mutex
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	QueueStats   map[queue.Status]int
	Active       *queue.Item
	LastError    string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := ffmpeg.NewClient(ffmpeg.WithBinary(cfg.FFmpeg.Binary))
	profile := engine.DetectProfile(client.Available())

	order := engine.DefaultOrder(profile)
	if len(cfg.Export.BackendOrder) > 0 {
		configured, err := engine.OrderFromNames(cfg.Export.BackendOrder)
		if err != nil {
			return nil, err
		}
		order = configured
	}

	engines := []engine.Engine{
		extproc.New(extproc.Options{
			Client:         client,
			StagingDir:     cfg.Paths.StagingDir,
			QualityPresets: cfg.FFmpeg.QualityPresets,
			EncodeTimeout:  time.Duration(cfg.FFmpeg.EncodeTimeout) * time.Second,
			Logger:         logger,
		}),
		softenc.New(softenc.Options{
			FrameMemoryMiB: cfg.Export.FrameMemoryMiB,
			Logger:         logger,
		}),
		recorder.New(recorder.Options{Logger: logger}),
	}

	var decode audio.DecodeFunc
	if client.Available() {
		decode = func(ctx context.Context, src timeline.Source, sampleRate, channels int) (*audio.Buffer, error) {
			if src.Path == "" {
				return nil, fmt.Errorf("source %q has no file path for external decode", src.Path)
			}
			return client.DecodePCM(ctx, src.Path, sampleRate, channels)
		}
	}

	coordinator := export.NewCoordinator(export.Options{
		Resolver:            timeline.DirResolver{Root: cfg.Paths.MediaDir},
		Engines:             engines,
		Order:               order,
		Profile:             profile,
		AudioSampleRate:     cfg.Audio.SampleRate,
		AudioChannels:       cfg.Audio.Channels,
		AudioDecodeTimeout:  time.Duration(cfg.Audio.DecodeTimeout) * time.Second,
		AudioStrict:         cfg.Audio.Strict,
		AudioDecode:         decode,
		ProgressMinInterval: time.Duration(cfg.Export.ProgressMinMillis) * time.Millisecond,
		Logger:              logger,
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipforged.lock")
	return &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		store:        store,
		ffmpegClient: client,
		coordinator:  coordinator,
		engines:      engines,
		order:        order,
		profile:      profile,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the queue worker.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	if reset, err := d.store.ResetInFlight(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset in-flight jobs: %w", err)
	} else if reset > 0 {
		d.logger.Info("requeued jobs left in-flight by a previous run",
			logging.Int64("count", reset))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.runLoop()

	d.running.Store(true)
	d.logger.Info("clipforge daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock. A job mid
// encode is cancelled and fully torn down before Stop returns.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	job := d.activeJob
	d.mu.Unlock()
	if job != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_ = job.Cancel(stopCtx)
		cancel()
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the worker loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.QueueStats = stats
	}
	d.mu.Lock()
	if d.activeItem != nil {
		item := *d.activeItem
		if d.activeJob != nil {
			view := d.activeJob.View()
			item.Status = queue.Status(view.State)
			item.Progress = view.Progress
			item.Backend = string(view.Backend)
		}
		status.Active = &item
	}
	status.LastError = d.lastError
	d.mu.Unlock()
	return status
}

// Enqueue validates and persists a new export job.
func (d *Daemon) Enqueue(ctx context.Context, title string, elements []timeline.Element, settings engine.Settings) (*queue.Item, error) {
	if _, err := timeline.Freeze(elements); err != nil {
		return nil, services.Wrap(services.ErrValidation, "daemon", "enqueue", "invalid timeline", err)
	}
	if settings.OutputPath == "" {
		return nil, services.Wrap(services.ErrValidation, "daemon", "enqueue", "output path required", nil)
	}

	timelineJSON, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("marshal timeline: %w", err)
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	job := export.NewJob(settings)
	item, err := d.store.Enqueue(ctx, job.ID(), title, string(timelineJSON), string(settingsJSON))
	if err != nil {
		return nil, err
	}
	d.logger.Info("export job enqueued",
		logging.JobID(job.ID()),
		logging.String("output", settings.OutputPath))
	return item, nil
}

// ListJobs returns persisted jobs filtered by optional statuses.
func (d *Daemon) ListJobs(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetJob returns one persisted job by UUID.
func (d *Daemon) GetJob(ctx context.Context, jobID string) (*queue.Item, error) {
	return d.store.GetByJobID(ctx, jobID)
}

// CancelJob cancels a queued or running job. Idempotent: cancelling a
// terminal or unknown job reports false without error. For a running job
// the call blocks until teardown completes.
func (d *Daemon) CancelJob(ctx context.Context, jobID string) (bool, error) {
	d.mu.Lock()
	job := d.activeJob
	item := d.activeItem
	d.mu.Unlock()

	if job != nil && item != nil && item.JobID == jobID {
		if err := job.Cancel(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return d.store.MarkCancelled(ctx, jobID)
}

// ClearCompleted removes completed jobs from the queue.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes failed jobs from the queue.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// CapabilitySummary describes the detected environment for status output.
type CapabilitySummary struct {
	HasNativeEncoder bool
	EstimatedRAMMiB  int
	BackendOrder     []string
}

// Capabilities reports the profile and preference order the daemon runs
// with.
func (d *Daemon) Capabilities() CapabilitySummary {
	order := make([]string, 0, len(d.order))
	for _, kind := range d.order {
		order = append(order, string(kind))
	}
	return CapabilitySummary{
		HasNativeEncoder: d.profile.HasNativeEncoder,
		EstimatedRAMMiB:  d.profile.EstimatedRAMMiB,
		BackendOrder:     order,
	}
}
