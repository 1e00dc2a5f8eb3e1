package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"clipforge/internal/engine"
	"clipforge/internal/export"
	"clipforge/internal/logging"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
	"clipforge/internal/services/ffmpeg"
	"clipforge/internal/timeline"
)

// Progress writes hit the database at most this often; state changes always
// persist immediately.
const progressPersistInterval = 2 * time.Second

func (d *Daemon) runLoop() {
	defer d.wg.Done()

	poll := time.Duration(d.cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 2 * time.Second
	}
	retry := time.Duration(d.cfg.Workflow.ErrorRetryInterval) * time.Second
	if retry <= 0 {
		retry = 10 * time.Second
	}

	for {
		item, err := d.store.NextQueued(d.ctx)
		if err != nil {
			d.setLastError(fmt.Sprintf("poll queue: %v", err))
			if !d.sleep(retry) {
				return
			}
			continue
		}
		if item == nil {
			if !d.sleep(poll) {
				return
			}
			continue
		}

		if err := preflight.Gate(preflight.RunAll(d.ctx, d.cfg)); err != nil {
			d.setLastError(err.Error())
			d.logger.Warn("preflight failed, holding queue", logging.Error(err))
			if !d.sleep(retry) {
				return
			}
			continue
		}

		d.runItem(item)
		if d.ctx.Err() != nil {
			return
		}
	}
}

func (d *Daemon) sleep(duration time.Duration) bool {
	select {
	case <-time.After(duration):
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *Daemon) setLastError(message string) {
	d.mu.Lock()
	d.lastError = message
	d.mu.Unlock()
}

// runItem drives one persisted job through the coordinator, mirroring its
// state and progress back into the store.
func (d *Daemon) runItem(item *queue.Item) {
	var settings engine.Settings
	if err := json.Unmarshal([]byte(item.SettingsJSON), &settings); err != nil {
		d.settleBadItem(item, fmt.Sprintf("corrupt settings: %v", err))
		return
	}
	var elements []timeline.Element
	if err := json.Unmarshal([]byte(item.TimelineJSON), &elements); err != nil {
		d.settleBadItem(item, fmt.Sprintf("corrupt timeline: %v", err))
		return
	}

	job := export.NewJobWithID(item.JobID, settings)
	d.mu.Lock()
	d.activeJob = job
	d.activeItem = item
	d.lastError = ""
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.activeJob = nil
		d.activeItem = nil
		d.mu.Unlock()
	}()

	var lastPersist time.Time
	persist := func(view export.View, force bool) {
		now := time.Now()
		if !force && now.Sub(lastPersist) < progressPersistInterval {
			return
		}
		lastPersist = now
		item.Status = queue.Status(view.State)
		item.Progress = view.Progress
		item.Backend = string(view.Backend)
		item.OutputPath = view.OutputPath
		item.ErrorMessage = view.Error
		item.SetWarnings(view.Warnings)
		if err := d.store.Update(context.Background(), item); err != nil {
			d.logger.Warn("persist job progress failed",
				logging.JobID(item.JobID),
				logging.Error(err))
		}
	}

	var lastState export.State
	err := d.coordinator.Run(d.ctx, job, elements, func(progress float64, state export.State) {
		persist(job.View(), state != lastState)
		lastState = state
	})
	if err != nil {
		d.setLastError(err.Error())
	}
	persist(job.View(), true)
}

func (d *Daemon) settleBadItem(item *queue.Item, message string) {
	item.Status = queue.StatusFailed
	item.ErrorMessage = message
	if err := d.store.Update(context.Background(), item); err != nil {
		d.logger.Warn("settle corrupt job failed", logging.Error(err))
	}
	d.setLastError(message)
}

// EncodeAudioInput is one audio file scheduled at an offset for an encode
// session.
type EncodeAudioInput struct {
	Path          string
	OffsetSeconds float64
}

// EncodeSessionRequest asks the daemon to encode a prepared frame directory
// out-of-process. This is the surface remote capture frontends use when
// they stage frames themselves.
type EncodeSessionRequest struct {
	SessionID     string
	FrameDir      string
	AudioFiles    []EncodeAudioInput
	Width         int
	Height        int
	FPS           int
	QualityPreset string
	Format        string
	Duration      float64
	OutputPath    string
}

// EncodeSession runs one external encode over an already staged frame
// sequence. Sessions serialize on the shared encoder resource.
func (d *Daemon) EncodeSession(ctx context.Context, req EncodeSessionRequest) (string, error) {
	d.encodeMu.Lock()
	defer d.encodeMu.Unlock()

	audioFiles := make([]ffmpeg.AudioInput, 0, len(req.AudioFiles))
	for _, input := range req.AudioFiles {
		audioFiles = append(audioFiles, ffmpeg.AudioInput{
			Path:          input.Path,
			OffsetSeconds: input.OffsetSeconds,
		})
	}

	encodeReq := ffmpeg.EncodeRequest{
		FramePattern: filepath.Join(req.FrameDir, "frame_%05d.png"),
		FPS:          req.FPS,
		Width:        req.Width,
		Height:       req.Height,
		AudioFiles:   audioFiles,
		Format:       req.Format,
		CRF:          d.cfg.FFmpeg.QualityPresets[req.QualityPreset],
		Duration:     req.Duration,
		OutputPath:   req.OutputPath,
	}

	encodeCtx := ctx
	if timeout := time.Duration(d.cfg.FFmpeg.EncodeTimeout) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := d.logger.With(logging.String("session", req.SessionID))
	sampler := logging.NewProgressSampler(5)
	err := d.ffmpegClient.EncodeSequence(encodeCtx, encodeReq, func(update ffmpeg.ProgressUpdate) {
		if req.Duration <= 0 {
			return
		}
		percent := update.OutTimeSeconds / req.Duration * 100
		if sampler.ShouldLog(percent, "encode") {
			logger.Info("encode session progress", logging.Float64("percent", percent))
		}
	})
	if err != nil {
		return "", err
	}
	return req.OutputPath, nil
}
