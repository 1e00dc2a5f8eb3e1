package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != defaultSampleRate {
		t.Errorf("sample rate = %d, want %d", cfg.Audio.SampleRate, defaultSampleRate)
	}
	if cfg.FFmpeg.Binary != defaultFFmpegBinary {
		t.Errorf("ffmpeg binary = %q, want %q", cfg.FFmpeg.Binary, defaultFFmpegBinary)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[audio]\nsample_rate = 44100\n\n[export]\nbackend_order = [\"software-encoder\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != defaultChannels {
		t.Errorf("channels = %d, want default %d", cfg.Audio.Channels, defaultChannels)
	}
	if len(cfg.Export.BackendOrder) != 1 || cfg.Export.BackendOrder[0] != "software-encoder" {
		t.Errorf("backend order = %v", cfg.Export.BackendOrder)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.normalize()
	cfg.Export.BackendOrder = []string{"quantum-encoder"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestValidateRejectsBadChannels(t *testing.T) {
	cfg := Default()
	cfg.normalize()
	cfg.Audio.Channels = 6
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected channel validation error")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := expandPath("~/x")
	if got != filepath.Join(home, "x") {
		t.Errorf("expandPath(~/x) = %q", got)
	}
	if expandPath("/abs/path") != "/abs/path" {
		t.Error("absolute paths must pass through")
	}
}
