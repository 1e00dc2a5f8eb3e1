package config

const (
	defaultStagingDir         = "~/.local/share/clipforge/staging"
	defaultOutputDir          = "~/Videos/clipforge"
	defaultMediaDir           = "~/Videos/clipforge/media"
	defaultLogDir             = "~/.local/share/clipforge/logs"
	defaultSocketPath         = "~/.local/share/clipforge/clipforge.sock"
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
	defaultFFmpegBinary       = "ffmpeg"
	defaultEncodeTimeout      = 3600
	defaultDecodeTimeout      = 10
	defaultProbeTimeout       = 30
	defaultSampleRate         = 48000
	defaultChannels           = 2
	defaultFrameMemoryMiB     = 512
	defaultProgressMinMillis  = 250
	defaultMinFreeGiB         = 2
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			MediaDir:   defaultMediaDir,
			LogDir:     defaultLogDir,
			SocketPath: defaultSocketPath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		FFmpeg: FFmpeg{
			Binary:        defaultFFmpegBinary,
			EncodeTimeout: defaultEncodeTimeout,
			DecodeTimeout: defaultDecodeTimeout,
			ProbeTimeout:  defaultProbeTimeout,
			QualityPresets: map[string]string{
				"low":    "28",
				"medium": "23",
				"high":   "18",
			},
		},
		Audio: Audio{
			SampleRate:    defaultSampleRate,
			Channels:      defaultChannels,
			DecodeTimeout: defaultDecodeTimeout,
			Strict:        false,
		},
		Export: Export{
			BackendOrder:      nil,
			FrameMemoryMiB:    defaultFrameMemoryMiB,
			ProgressMinMillis: defaultProgressMinMillis,
			MinFreeGiB:        defaultMinFreeGiB,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
	}
}
