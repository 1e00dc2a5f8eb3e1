package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestPublishFile(t *testing.T) {
	staging := t.TempDir()
	staged := filepath.Join(staging, "output.mp4")
	content := []byte("encoded export output")
	if err := os.WriteFile(staged, content, 0o600); err != nil {
		t.Fatalf("write staged: %v", err)
	}

	final := filepath.Join(t.TempDir(), "export.mp4")
	if err := PublishFile(staged, final); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}

	published, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("read published: %v", err)
	}
	if !bytes.Equal(published, content) {
		t.Fatalf("published content = %q, want %q", published, content)
	}
}

func TestPublishFileMissingStaged(t *testing.T) {
	final := filepath.Join(t.TempDir(), "export.mp4")
	err := PublishFile(filepath.Join(t.TempDir(), "missing.mp4"), final)
	if err == nil {
		t.Fatal("expected error for missing staged output")
	}
	if _, statErr := os.Stat(final); !os.IsNotExist(statErr) {
		t.Fatalf("final path must not exist after failed publish, stat: %v", statErr)
	}
}

func TestPublishFileOverwritesPrevious(t *testing.T) {
	staging := t.TempDir()
	staged := filepath.Join(staging, "output.webm")
	if err := os.WriteFile(staged, []byte("new"), 0o600); err != nil {
		t.Fatalf("write staged: %v", err)
	}

	final := filepath.Join(t.TempDir(), "export.webm")
	if err := os.WriteFile(final, []byte("stale previous export"), 0o644); err != nil {
		t.Fatalf("write previous: %v", err)
	}

	if err := PublishFile(staged, final); err != nil {
		t.Fatalf("PublishFile: %v", err)
	}
	published, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("read published: %v", err)
	}
	if string(published) != "new" {
		t.Fatalf("published content = %q, want %q", published, "new")
	}
}
