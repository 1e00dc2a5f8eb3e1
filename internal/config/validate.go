package config

import (
	"fmt"
	"strings"
)

var knownBackends = map[string]struct{}{
	"external-process": {},
	"software-encoder": {},
	"stream-recorder":  {},
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return fmt.Errorf("config: paths.staging_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("config: paths.output_dir must not be empty")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("config: audio.sample_rate must be positive")
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("config: audio.channels must be 1 or 2, got %d", c.Audio.Channels)
	}
	if c.Audio.DecodeTimeout <= 0 {
		return fmt.Errorf("config: audio.decode_timeout must be positive")
	}
	if c.Export.FrameMemoryMiB <= 0 {
		return fmt.Errorf("config: export.frame_memory_mib must be positive")
	}
	for _, backend := range c.Export.BackendOrder {
		if _, ok := knownBackends[strings.TrimSpace(backend)]; !ok {
			return fmt.Errorf("config: export.backend_order contains unknown backend %q", backend)
		}
	}
	if c.FFmpeg.EncodeTimeout <= 0 {
		return fmt.Errorf("config: ffmpeg.encode_timeout must be positive")
	}
	return nil
}
