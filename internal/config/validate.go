package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.WindowSeconds <= 0 {
		return errors.New("transcription.window_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.Retrieval.MaxChunkChars <= 0 {
		return errors.New("retrieval.max_chunk_chars must be positive")
	}
	if c.Retrieval.ChunkOverlap < 0 {
		return errors.New("retrieval.chunk_overlap must be zero or positive")
	}
	if c.Retrieval.TranscriptHits <= 0 {
		return errors.New("retrieval.transcript_hits must be positive")
	}
	if c.Retrieval.AttachmentHits <= 0 {
		return errors.New("retrieval.attachment_hits must be positive")
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.Workers <= 0 {
		return errors.New("jobs.workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be zero or positive")
	}
	return nil
}
