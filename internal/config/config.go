package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	MediaDir   string `toml:"media_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// FFmpeg contains configuration for the external encoder binary.
type FFmpeg struct {
	Binary         string            `toml:"binary"`
	EncodeTimeout  int               `toml:"encode_timeout"`
	DecodeTimeout  int               `toml:"decode_timeout"`
	ProbeTimeout   int               `toml:"probe_timeout"`
	QualityPresets map[string]string `toml:"quality_presets"`
}

// Audio contains mixer configuration.
type Audio struct {
	SampleRate    int  `toml:"sample_rate"`
	Channels      int  `toml:"channels"`
	DecodeTimeout int  `toml:"decode_timeout"`
	Strict        bool `toml:"strict"`
}

// Export contains encode pipeline tuning.
type Export struct {
	BackendOrder      []string `toml:"backend_order"`
	FrameMemoryMiB    int      `toml:"frame_memory_mib"`
	ProgressMinMillis int      `toml:"progress_min_millis"`
	MinFreeGiB        int      `toml:"min_free_gib"`
}

// Workflow contains daemon timing configuration.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Config is the root configuration document.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Logging  Logging  `toml:"logging"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Audio    Audio    `toml:"audio"`
	Export   Export   `toml:"export"`
	Workflow Workflow `toml:"workflow"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return expandPath("~/.config/clipforge/config.toml")
}

// Load reads the config file at path, merging it over defaults. A missing
// file yields pure defaults without error so first runs work out of the box.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg.normalize()
			return &cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, cfg.Validate()
}

// WriteSample writes the annotated sample config to path.
func WriteSample(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.MediaDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Paths.StagingDir = expandPath(c.Paths.StagingDir)
	c.Paths.OutputDir = expandPath(c.Paths.OutputDir)
	c.Paths.MediaDir = expandPath(c.Paths.MediaDir)
	c.Paths.LogDir = expandPath(c.Paths.LogDir)
	c.Paths.SocketPath = expandPath(c.Paths.SocketPath)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
