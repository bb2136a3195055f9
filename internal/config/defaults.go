package config

const (
	defaultDataDir        = "~/.local/share/lectern/data"
	defaultLogDir         = "~/.local/share/lectern/logs"
	defaultAPIBind        = "127.0.0.1:7787"
	defaultWindowSeconds  = 600
	defaultWhisperCommand = "whisperx"
	defaultWhisperModel   = "base"
	defaultFFmpegCommand  = "ffmpeg"
	defaultFFprobeCommand = "ffprobe"
	defaultMaxChunkChars  = 1200
	defaultChunkOverlap   = 1
	defaultTranscriptHits = 6
	defaultAttachmentHits = 3
	defaultJobWorkers     = 2
	defaultLLMBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel       = "google/gemini-3-flash-preview"
	defaultLLMTimeout     = 60
	defaultNtfyTimeout    = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Transcription: Transcription{
			WindowSeconds:  defaultWindowSeconds,
			WhisperCommand: defaultWhisperCommand,
			WhisperModel:   defaultWhisperModel,
			FFmpegCommand:  defaultFFmpegCommand,
			FFprobeCommand: defaultFFprobeCommand,
		},
		Retrieval: Retrieval{
			MaxChunkChars:  defaultMaxChunkChars,
			ChunkOverlap:   defaultChunkOverlap,
			TranscriptHits: defaultTranscriptHits,
			AttachmentHits: defaultAttachmentHits,
		},
		Jobs: Jobs{
			Workers: defaultJobWorkers,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
