package ipc

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/testsupport"
	"clipforge/internal/timeline"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithBackendOrder("stream-recorder"))
	cfg.FFmpeg.Binary = "clipforge-no-such-ffmpeg"
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)

	srv, err := NewServer(context.Background(), cfg.Paths.SocketPath, d, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func exportRequest(t *testing.T) ExportRequest {
	t.Helper()
	elements := []timeline.Element{{
		ID:        "bg",
		Kind:      timeline.KindVisual,
		SourceRef: "color:#204060",
		Duration:  1,
	}}
	data, err := json.Marshal(elements)
	if err != nil {
		t.Fatalf("marshal timeline: %v", err)
	}
	return ExportRequest{
		Title:        "ipc export",
		TimelineJSON: string(data),
		Width:        64,
		Height:       48,
		FPS:          10,
		Format:       "webm",
		Quality:      "medium",
		Duration:     1,
		OutputPath:   filepath.Join(t.TempDir(), "out.webm"),
	}
}

func TestExportRoundTrip(t *testing.T) {
	client := newTestClient(t)

	exported, err := client.Export(exportRequest(t))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported.Job.JobID == "" {
		t.Fatal("export response missing job id")
	}
	if exported.Job.Status != "queued" {
		t.Fatalf("status = %q, want queued", exported.Job.Status)
	}

	described, err := client.JobDescribe(exported.Job.JobID)
	if err != nil {
		t.Fatalf("JobDescribe: %v", err)
	}
	if described.Job.Title != "ipc export" {
		t.Fatalf("title = %q", described.Job.Title)
	}

	listed, err := client.JobList([]string{"queued"})
	if err != nil {
		t.Fatalf("JobList: %v", err)
	}
	if len(listed.Jobs) != 1 {
		t.Fatalf("job count = %d, want 1", len(listed.Jobs))
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should not report running")
	}
	if status.QueueStats["queued"] != 1 {
		t.Fatalf("queued stat = %d, want 1", status.QueueStats["queued"])
	}
	if status.HasNativeEncoder {
		t.Fatal("native encoder should be unavailable")
	}

	cancelled, err := client.Cancel(exported.Job.JobID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !cancelled.Cancelled {
		t.Fatalf("expected cancellation, got %q", cancelled.Message)
	}
}

func TestExportRejectsMissingOutput(t *testing.T) {
	client := newTestClient(t)

	req := exportRequest(t)
	req.OutputPath = ""
	if _, err := client.Export(req); err == nil {
		t.Fatal("expected validation error over the wire")
	}
}

func TestJobListRejectsUnknownStatus(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.JobList([]string{"sideways"}); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestJobDescribeUnknownJob(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.JobDescribe("no-such-job"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestDialFailsWithoutSocket(t *testing.T) {
	if _, err := Dial(filepath.Join(t.TempDir(), "missing.sock")); err == nil {
		t.Fatal("expected dial failure")
	}
}
