package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present)

	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: ""},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("explicit path should resolve, got %#v", results[0])
	}
	if results[1].Available {
		t.Fatal("missing binary must be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("missing binary needs a detail message")
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unset command detail = %q", results[2].Detail)
	}
}

func TestCheckBinariesResolvesFromPath(t *testing.T) {
	binDir := t.TempDir()
	target := filepath.Join(binDir, "clipforge-probe")
	writeStub(t, target)
	t.Setenv("PATH", binDir)

	results := CheckBinaries([]Requirement{{Name: "Probe", Command: "clipforge-probe"}})
	if !results[0].Available {
		t.Fatalf("expected PATH resolution, got %#v", results[0])
	}
	if results[0].Command != target {
		t.Fatalf("resolved command = %q, want %q", results[0].Command, target)
	}
}

func TestExplicitPathMustBeExecutable(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "not-executable")
	if err := os.WriteFile(plain, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	results := CheckBinaries([]Requirement{{Name: "Plain", Command: plain}})
	if results[0].Available {
		t.Fatal("non-executable file must not count as available")
	}
}

func TestDefaultRequirements(t *testing.T) {
	reqs := DefaultRequirements("")
	if len(reqs) == 0 || reqs[0].Command != "ffmpeg" {
		t.Fatalf("defaults = %#v", reqs)
	}
	reqs = DefaultRequirements("/opt/ffmpeg/bin/ffmpeg")
	if reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("configured binary not honored: %#v", reqs)
	}
}
