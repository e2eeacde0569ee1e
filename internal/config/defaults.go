package config

const (
	defaultUploadDir              = "~/.local/share/squeeze/uploads"
	defaultOutputDir              = "~/.local/share/squeeze/output"
	defaultLogDir                 = "~/.local/share/squeeze/logs"
	defaultAPIBind                = "127.0.0.1:5333"
	defaultMaxConcurrentJobs      = 2
	defaultMaxQueueSize           = 10
	defaultCleanupIntervalMinutes = 15
	defaultRetentionMinutes       = 240
	defaultStaleProcessingHours   = 4
	defaultStaleQueuedHours       = 2
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultProbeTimeoutSeconds    = 15
	defaultKillGraceSeconds       = 5
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Queue: Queue{
			MaxConcurrentJobs:      defaultMaxConcurrentJobs,
			MaxQueueSize:           defaultMaxQueueSize,
			CleanupIntervalMinutes: defaultCleanupIntervalMinutes,
			RetentionMinutes:       defaultRetentionMinutes,
			StaleProcessingHours:   defaultStaleProcessingHours,
			StaleQueuedHours:       defaultStaleQueuedHours,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			KillGraceSeconds:    defaultKillGraceSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
