package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/media/audio"
	"lectern/internal/services"
	"lectern/internal/transcript"
)

// ProgressFunc receives completion percentage and a short status message.
type ProgressFunc func(percent int, message string)

// Pipeline turns an uploaded recording into published transcript artifacts.
type Pipeline struct {
	windowSeconds int
	maxChunkChars int
	chunkOverlap  int

	audio      *audio.Service
	recognizer Recognizer
	logger     *slog.Logger
}

// NewPipeline assembles a pipeline from configuration. The recognizer is
// injectable so tests can avoid a real speech model.
func NewPipeline(cfg *config.Config, audioSvc *audio.Service, recognizer Recognizer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	windowSeconds := cfg.Transcription.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = 600
	}
	return &Pipeline{
		windowSeconds: windowSeconds,
		maxChunkChars: cfg.Retrieval.MaxChunkChars,
		chunkOverlap:  cfg.Retrieval.ChunkOverlap,
		audio:         audioSvc,
		recognizer:    recognizer,
		logger:        logging.WithComponent(logger, "transcribe"),
	}
}

// Run transcribes audioPath and publishes artifacts under sessionDir.
// It returns the path of the published transcript.json.
func (p *Pipeline) Run(ctx context.Context, audioPath, sessionDir string, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	workDir := filepath.Join(sessionDir, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure work dir: %w", err)
	}

	wavPath, err := p.ensureWAV(ctx, audioPath, workDir)
	if err != nil {
		return "", err
	}

	duration, err := p.audio.Duration(ctx, wavPath)
	if err != nil {
		return "", err
	}
	totalWindows := int(math.Ceil(duration / float64(p.windowSeconds)))
	if totalWindows <= 0 {
		wrapped := services.Wrap(services.ErrValidation, "transcribe", "window", "no audio data found", nil)
		return "", services.WithUserMessage(wrapped, "Audio file was empty.")
	}

	p.logger.Info("transcription started",
		slog.String("audio", filepath.Base(audioPath)),
		slog.Float64("duration_seconds", duration),
		slog.Int("windows", totalWindows))

	windowDir := filepath.Join(workDir, "windows")
	if err := os.MkdirAll(windowDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure window dir: %w", err)
	}

	segments := make([]transcript.Segment, 0)
	segmentID := 0
	for windowIndex := 0; windowIndex < totalWindows; windowIndex++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		percent := int(float64(windowIndex) / float64(totalWindows) * 100)
		progress(percent, fmt.Sprintf("Transcribing window %d/%d", windowIndex+1, totalWindows))

		offset := windowIndex * p.windowSeconds
		windowPath := filepath.Join(windowDir, fmt.Sprintf("window_%03d.wav", windowIndex))
		if err := p.audio.ExtractWindow(ctx, wavPath, offset, p.windowSeconds, windowPath); err != nil {
			return "", err
		}

		raw, err := p.recognizer.Transcribe(ctx, windowPath, windowDir)
		if err != nil {
			return "", err
		}
		for _, seg := range raw {
			segments = append(segments, transcript.Segment{
				SegmentID: segmentID,
				Start:     seg.Start + float64(offset),
				End:       seg.End + float64(offset),
				Text:      strings.TrimSpace(seg.Text),
				Tags:      []string{},
			})
			segmentID++
		}
	}

	chunks, err := transcript.BuildChunks(segments, p.maxChunkChars, p.chunkOverlap)
	if err != nil {
		return "", err
	}
	transcriptPath, err := transcript.WriteArtifacts(sessionDir, segments, chunks)
	if err != nil {
		return "", err
	}

	progress(100, "Transcription complete.")
	p.logger.Info("transcription complete",
		slog.Int("segments", len(segments)),
		slog.Int("chunks", len(chunks)))
	return transcriptPath, nil
}

// ensureWAV returns audioPath when it is already a WAV, otherwise converts it
// into the work directory.
func (p *Pipeline) ensureWAV(ctx context.Context, audioPath, workDir string) (string, error) {
	if strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		return audioPath, nil
	}
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	wavPath := filepath.Join(workDir, stem+".wav")
	if err := p.audio.Normalize(ctx, audioPath, wavPath); err != nil {
		return "", err
	}
	return wavPath, nil
}
