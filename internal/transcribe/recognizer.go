// Package transcribe runs uploaded lecture audio through speech recognition
// in fixed windows and publishes transcript artifacts.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lectern/internal/services"
)

// RawSegment is one utterance as emitted by the recognizer, timed relative to
// the start of the audio it was given.
type RawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Recognizer converts one WAV file into timestamped segments.
type Recognizer interface {
	Transcribe(ctx context.Context, wavPath, outputDir string) ([]RawSegment, error)
}

// WhisperConfig configures the CLI-based recognizer.
type WhisperConfig struct {
	Command  string
	Model    string
	Language string
}

// WhisperRecognizer shells out to a whisperx-compatible CLI that writes a
// JSON file with a top-level "segments" array next to the input.
type WhisperRecognizer struct {
	cfg           WhisperConfig
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperRecognizer builds a recognizer around the configured CLI.
func NewWhisperRecognizer(cfg WhisperConfig) *WhisperRecognizer {
	if cfg.Command == "" {
		cfg.Command = "whisperx"
	}
	if cfg.Model == "" {
		cfg.Model = "base"
	}
	return &WhisperRecognizer{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *WhisperRecognizer) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	r.commandRunner = runner
}

// Model returns the configured model name for logging.
func (r *WhisperRecognizer) Model() string {
	return r.cfg.Model
}

func (r *WhisperRecognizer) run(ctx context.Context, name string, args ...string) error {
	if r.commandRunner != nil {
		return r.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe runs the CLI against wavPath and parses the JSON it writes.
func (r *WhisperRecognizer) Transcribe(ctx context.Context, wavPath, outputDir string) ([]RawSegment, error) {
	if wavPath == "" {
		return nil, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(wavPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if _, err := exec.LookPath(r.cfg.Command); err != nil && r.commandRunner == nil {
		wrapped := services.Wrap(services.ErrExternalTool, "transcribe", "recognize",
			fmt.Sprintf("binary %q not found", r.cfg.Command), err)
		return nil, services.WithUserMessage(wrapped,
			"Transcription engine missing. Install whisperx to run transcription.")
	}

	args := r.buildArgs(wavPath, outputDir)
	if err := r.run(ctx, r.cfg.Command, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "recognize", "", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	return LoadRawSegments(filepath.Join(outputDir, baseName+".json"))
}

func (r *WhisperRecognizer) buildArgs(wavPath, outputDir string) []string {
	args := []string{
		wavPath,
		"--model", r.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--device", "cpu",
		"--compute_type", "int8",
	}
	if r.cfg.Language != "" {
		args = append(args, "--language", r.cfg.Language)
	}
	return args
}

type recognizerPayload struct {
	Segments []RawSegment `json:"segments"`
}

// LoadRawSegments loads segments from a recognizer JSON file.
func LoadRawSegments(jsonPath string) ([]RawSegment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload recognizerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse recognizer json: %w", err)
	}
	return payload.Segments, nil
}
