package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewForDirWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewForDir(dir, "info", "console")
	if err != nil {
		t.Fatalf("NewForDir: %v", err)
	}

	logger.Info("export queued", JobID("job-1"), Stage("queued"))

	file, err := os.Open(filepath.Join(dir, "clipforge.log"))
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatal("log file is empty")
	}
	var fields struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
		JobID string `json:"job_id"`
		Stage string `json:"stage"`
	}
	// The file must be JSON even when stdout uses the console format, so
	// the logs command can filter by job.
	if err := json.Unmarshal(scanner.Bytes(), &fields); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if fields.Level != "info" || fields.Msg != "export queued" {
		t.Fatalf("line = %+v", fields)
	}
	if fields.JobID != "job-1" || fields.Stage != "queued" {
		t.Fatalf("structured fields = %+v", fields)
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewForDir(dir, "info", "console")
	if err != nil {
		t.Fatalf("NewForDir: %v", err)
	}
	logger.Debug("noise")

	info, err := os.Stat(filepath.Join(dir, "clipforge.log"))
	if err != nil {
		t.Fatalf("stat log file: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("log file size = %d, want 0", info.Size())
	}
}
