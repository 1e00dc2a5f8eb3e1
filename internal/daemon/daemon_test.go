package daemon

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/engine"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/testsupport"
	"clipforge/internal/timeline"
)

func testDaemon(t *testing.T, opts ...testsupport.ConfigOption) *Daemon {
	t.Helper()
	opts = append([]testsupport.ConfigOption{
		testsupport.WithBackendOrder("stream-recorder"),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.FFmpeg.Binary = "clipforge-no-such-ffmpeg"
	store := testsupport.MustOpenStore(t, cfg)

	d, err := New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func testElements() []timeline.Element {
	return []timeline.Element{{
		ID:        "bg",
		Kind:      timeline.KindVisual,
		SourceRef: "color:#336699",
		Duration:  0.5,
	}}
}

// testElementsWithAudio adds an audio clip backed by a real WAV file under
// the daemon's media directory, so the job exercises the file decode path.
func testElementsWithAudio(t *testing.T, d *Daemon) []timeline.Element {
	t.Helper()
	ref := testsupport.WriteMediaWAV(t, d.cfg.Paths.MediaDir, "tone.wav", 0.25, 1, 8000)
	return append(testElements(), timeline.Element{
		ID:        "tone",
		Kind:      timeline.KindAudio,
		SourceRef: ref,
		Duration:  0.5,
		Volume:    1,
	})
}

func testSettings(d *Daemon) engine.Settings {
	return engine.Settings{
		Width:      64,
		Height:     48,
		FPS:        4,
		Format:     "mp4",
		Quality:    "medium",
		Duration:   0.5,
		OutputPath: filepath.Join(d.cfg.Paths.OutputDir, "out.mp4"),
	}
}

func TestDaemonProcessesQueuedJob(t *testing.T) {
	d := testDaemon(t)
	ctx := context.Background()

	item, err := d.Enqueue(ctx, "e2e export", testElements(), testSettings(d))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitTerminal(t, d, item.JobID, 15*time.Second)
	if final.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (error %q), want completed", final.Status, final.ErrorMessage)
	}
	if final.Progress != 1 {
		t.Fatalf("progress = %v, want 1", final.Progress)
	}
	if final.Backend != string(engine.KindStreamRecorder) {
		t.Fatalf("backend = %q, want stream-recorder", final.Backend)
	}

	data, err := os.ReadFile(final.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		t.Fatalf("output is not an EBML container")
	}

	// Recorder writes Matroska regardless of the requested mp4 container.
	warnings := final.Warnings()
	found := false
	for _, w := range warnings {
		if bytes.Contains([]byte(w), []byte("mkv")) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected container deviation warning, got %v", warnings)
	}
}

func TestDaemonProcessesJobWithAudioClip(t *testing.T) {
	d := testDaemon(t)
	ctx := context.Background()

	item, err := d.Enqueue(ctx, "audio export", testElementsWithAudio(t, d), testSettings(d))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitTerminal(t, d, item.JobID, 15*time.Second)
	if final.Status != queue.StatusCompleted {
		t.Fatalf("status = %s (error %q), want completed", final.Status, final.ErrorMessage)
	}
	// A decodable source must not degrade to silence.
	for _, w := range final.Warnings() {
		if bytes.Contains([]byte(w), []byte("silence")) {
			t.Fatalf("unexpected decode warning: %q", w)
		}
	}
}

func TestStartRejectsSecondInstance(t *testing.T) {
	d := testDaemon(t)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	other, err := New(d.cfg, d.store, logging.NewNop())
	if err != nil {
		t.Fatalf("New second daemon: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("expected second Start to fail while lock is held")
	}
}

func TestEnqueueValidation(t *testing.T) {
	d := testDaemon(t)
	ctx := context.Background()

	settings := testSettings(d)
	settings.OutputPath = ""
	if _, err := d.Enqueue(ctx, "no output", testElements(), settings); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing output path: err = %v, want validation error", err)
	}

	bad := []timeline.Element{{ID: "x", Kind: "bogus", Duration: 1}}
	if _, err := d.Enqueue(ctx, "bad timeline", bad, testSettings(d)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("invalid timeline: err = %v, want validation error", err)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	d := testDaemon(t)
	ctx := context.Background()

	item, err := d.Enqueue(ctx, "to cancel", testElements(), testSettings(d))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	cancelled, err := d.CancelJob(ctx, item.JobID)
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if !cancelled {
		t.Fatal("expected queued job to be cancelled")
	}

	stored, err := d.GetJob(ctx, item.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Status != queue.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", stored.Status)
	}

	// Second cancel of the same job reports nothing to do.
	cancelled, err = d.CancelJob(ctx, item.JobID)
	if err != nil {
		t.Fatalf("repeat CancelJob: %v", err)
	}
	if cancelled {
		t.Fatal("repeat cancel should report false")
	}
}

func TestStatusReflectsQueue(t *testing.T) {
	d := testDaemon(t)
	ctx := context.Background()

	if _, err := d.Enqueue(ctx, "queued job", testElements(), testSettings(d)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	status := d.Status(ctx)
	if status.Running {
		t.Fatal("daemon should not report running before Start")
	}
	if status.QueueStats[queue.StatusQueued] != 1 {
		t.Fatalf("queued count = %d, want 1", status.QueueStats[queue.StatusQueued])
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatal("status should expose db and lock paths")
	}

	caps := d.Capabilities()
	if caps.HasNativeEncoder {
		t.Fatal("native encoder should be unavailable with a missing binary")
	}
	if len(caps.BackendOrder) == 0 || caps.BackendOrder[0] != string(engine.KindStreamRecorder) {
		t.Fatalf("backend order = %v", caps.BackendOrder)
	}
}

func waitTerminal(t *testing.T, d *Daemon, jobID string, timeout time.Duration) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		item, err := d.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if item != nil && item.Status.Terminal() {
			return item
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state within %s", jobID, timeout)
	return nil
}
