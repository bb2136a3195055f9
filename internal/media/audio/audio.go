// Package audio shells out to ffmpeg and ffprobe to prepare uploads for
// speech recognition.
package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// Runner executes an external command and returns its combined output.
// Injectable so tests can avoid real binaries.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Service wraps the ffmpeg and ffprobe binaries.
type Service struct {
	ffmpeg  string
	ffprobe string
	run     Runner
}

// Option customizes the service.
type Option func(*Service)

// WithRunner overrides command execution.
func WithRunner(run Runner) Option {
	return func(s *Service) {
		if run != nil {
			s.run = run
		}
	}
}

// NewService builds an audio service for the given binary names.
func NewService(ffmpegCommand, ffprobeCommand string, opts ...Option) *Service {
	svc := &Service{
		ffmpeg:  strings.TrimSpace(ffmpegCommand),
		ffprobe: strings.TrimSpace(ffprobeCommand),
		run:     defaultRunner,
	}
	if svc.ffmpeg == "" {
		svc.ffmpeg = "ffmpeg"
	}
	if svc.ffprobe == "" {
		svc.ffprobe = "ffprobe"
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Normalize converts source into a mono 16 kHz PCM WAV at dest, the input
// format the recognizer expects.
func (s *Service) Normalize(ctx context.Context, source, dest string) error {
	if _, err := exec.LookPath(s.ffmpeg); err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "audio", "normalize",
			fmt.Sprintf("binary %q not found", s.ffmpeg), err)
		return services.WithUserMessage(wrapped,
			"ffmpeg is required to convert audio. Install ffmpeg or upload a WAV file.")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if output, err := s.run(ctx, s.ffmpeg, args...); err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "audio", "normalize",
			strings.TrimSpace(string(output)), err)
		return services.WithUserMessage(wrapped,
			"Could not convert audio to WAV. Please try another file.")
	}
	return nil
}

// ExtractWindow cuts a time range out of source as mono 16 kHz PCM WAV.
// startSec is seconds from the beginning, durationSec the window length.
func (s *Service) ExtractWindow(ctx context.Context, source string, startSec, durationSec int, dest string) error {
	if durationSec <= 0 {
		return services.Wrap(services.ErrValidation, "audio", "extract window",
			fmt.Sprintf("invalid duration %d", durationSec), nil)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.Itoa(startSec),
		"-t", strconv.Itoa(durationSec),
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if output, err := s.run(ctx, s.ffmpeg, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "extract window",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration reports the length of an audio file in seconds via ffprobe.
func (s *Service) Duration(ctx context.Context, path string) (float64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe duration: empty path")
	}
	output, err := s.run(ctx, s.ffprobe,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-of", "json",
		"--", path,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "audio", "probe duration",
			strings.TrimSpace(string(output)), err)
	}
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil || duration < 0 {
		return 0, fmt.Errorf("ffprobe parse: invalid duration %q", result.Format.Duration)
	}
	return duration, nil
}
