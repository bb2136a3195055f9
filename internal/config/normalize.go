package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeRetrieval()
	c.normalizeJobs()
	c.normalizeLLM()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	if c.Transcription.WindowSeconds == 0 {
		c.Transcription.WindowSeconds = defaultWindowSeconds
	}
	c.Transcription.WhisperCommand = strings.TrimSpace(c.Transcription.WhisperCommand)
	if c.Transcription.WhisperCommand == "" {
		c.Transcription.WhisperCommand = defaultWhisperCommand
	}
	if strings.TrimSpace(c.Transcription.WhisperModel) == "" {
		c.Transcription.WhisperModel = defaultWhisperModel
	}
	if strings.TrimSpace(c.Transcription.FFmpegCommand) == "" {
		c.Transcription.FFmpegCommand = defaultFFmpegCommand
	}
	if strings.TrimSpace(c.Transcription.FFprobeCommand) == "" {
		c.Transcription.FFprobeCommand = defaultFFprobeCommand
	}
}

func (c *Config) normalizeRetrieval() {
	if c.Retrieval.MaxChunkChars == 0 {
		c.Retrieval.MaxChunkChars = defaultMaxChunkChars
	}
	if c.Retrieval.ChunkOverlap < 0 {
		c.Retrieval.ChunkOverlap = defaultChunkOverlap
	}
	if c.Retrieval.TranscriptHits == 0 {
		c.Retrieval.TranscriptHits = defaultTranscriptHits
	}
	if c.Retrieval.AttachmentHits == 0 {
		c.Retrieval.AttachmentHits = defaultAttachmentHits
	}
}

func (c *Config) normalizeJobs() {
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = defaultJobWorkers
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("LECTERN_LLM_API_KEY"); ok {
			c.LLM.APIKey = value
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
