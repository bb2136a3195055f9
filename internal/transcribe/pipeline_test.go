package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/media/audio"
	"lectern/internal/services"
	"lectern/internal/testsupport"
	"lectern/internal/transcript"
)

// stubRecognizer returns canned segments per window, keyed by call order.
type stubRecognizer struct {
	calls    int
	segments [][]RawSegment
	err      error
}

func (s *stubRecognizer) Transcribe(ctx context.Context, wavPath, outputDir string) ([]RawSegment, error) {
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	s.calls++
	if idx < len(s.segments) {
		return s.segments[idx], nil
	}
	return nil, nil
}

// fakeAudio builds an audio.Service whose runner fabricates ffprobe duration
// output and touches ffmpeg destination files.
func fakeAudio(durationSeconds float64) *audio.Service {
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if strings.Contains(name, "ffprobe") {
			return []byte(fmt.Sprintf(`{"format":{"duration":"%f"}}`, durationSeconds)), nil
		}
		// ffmpeg: last argument is the destination file.
		dest := args[len(args)-1]
		if err := os.WriteFile(dest, []byte("wav"), 0o644); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return audio.NewService("ffmpeg", "ffprobe", audio.WithRunner(runner))
}

func TestPipelineWindowsAndOffsets(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWindowSeconds(600))
	sessionDir := t.TempDir()
	audioPath := filepath.Join(t.TempDir(), "lecture.wav")
	testsupport.WriteFile(t, audioPath, 64)

	rec := &stubRecognizer{segments: [][]RawSegment{
		{{Start: 0, End: 4, Text: " hello everyone "}, {Start: 4, End: 9, Text: "today we begin"}},
		{{Start: 1.5, End: 6, Text: "second window"}},
	}}
	// 900 seconds -> two 600s windows.
	pipeline := NewPipeline(cfg, fakeAudio(900), rec, nil)

	var progressMessages []string
	transcriptPath, err := pipeline.Run(context.Background(), audioPath, sessionDir,
		func(percent int, message string) {
			progressMessages = append(progressMessages, fmt.Sprintf("%d:%s", percent, message))
		})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	segments := transcript.LoadSegments(transcriptPath)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.SegmentID != i {
			t.Fatalf("segment ids must be sequential across windows: %+v", segments)
		}
	}
	if segments[0].Text != "hello everyone" {
		t.Fatalf("segment text should be trimmed: %q", segments[0].Text)
	}
	// Second window segment shifted by one window length.
	last := segments[2]
	if last.Start != 601.5 || last.End != 606 {
		t.Fatalf("window offset not applied: %+v", last)
	}

	if len(progressMessages) < 3 {
		t.Fatalf("expected progress updates, got %v", progressMessages)
	}
	if progressMessages[0] != "0:Transcribing window 1/2" {
		t.Fatalf("unexpected first progress: %q", progressMessages[0])
	}
	if progressMessages[1] != "50:Transcribing window 2/2" {
		t.Fatalf("unexpected second progress: %q", progressMessages[1])
	}
	final := progressMessages[len(progressMessages)-1]
	if final != "100:Transcription complete." {
		t.Fatalf("unexpected final progress: %q", final)
	}

	chunks := transcript.LoadChunks(filepath.Join(sessionDir, transcript.DirName, transcript.ChunksFile))
	if len(chunks) == 0 {
		t.Fatal("expected chunks.json to be published")
	}
}

func TestPipelineEmptyAudioFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sessionDir := t.TempDir()
	audioPath := filepath.Join(t.TempDir(), "empty.wav")
	testsupport.WriteFile(t, audioPath, 1)

	pipeline := NewPipeline(cfg, fakeAudio(0), &stubRecognizer{}, nil)
	_, err := pipeline.Run(context.Background(), audioPath, sessionDir, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := services.UserMessage(err, "Job failed."); msg != "Audio file was empty." {
		t.Fatalf("unexpected user message: %q", msg)
	}
}

func TestPipelineRecognizerFailurePropagates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sessionDir := t.TempDir()
	audioPath := filepath.Join(t.TempDir(), "lecture.wav")
	testsupport.WriteFile(t, audioPath, 64)

	wantErr := services.Wrap(services.ErrExternalTool, "transcribe", "recognize", "model crashed", nil)
	pipeline := NewPipeline(cfg, fakeAudio(60), &stubRecognizer{err: wantErr}, nil)
	_, err := pipeline.Run(context.Background(), audioPath, sessionDir, nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected recognizer error, got %v", err)
	}
	// A failed run must not publish a transcript directory.
	if _, statErr := os.Stat(filepath.Join(sessionDir, transcript.DirName)); !os.IsNotExist(statErr) {
		t.Fatal("transcript must not be published on failure")
	}
}

func TestPipelineConvertsNonWAV(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	sessionDir := t.TempDir()
	audioPath := filepath.Join(t.TempDir(), "lecture.m4a")
	testsupport.WriteFile(t, audioPath, 64)

	var sawNormalize bool
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if strings.Contains(name, "ffprobe") {
			return []byte(`{"format":{"duration":"30"}}`), nil
		}
		joined := strings.Join(args, " ")
		if strings.Contains(joined, "lecture.m4a") {
			sawNormalize = true
		}
		dest := args[len(args)-1]
		return nil, os.WriteFile(dest, []byte("wav"), 0o644)
	}
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	svc := audio.NewService(ffmpeg, "ffprobe", audio.WithRunner(runner))

	rec := &stubRecognizer{segments: [][]RawSegment{{{Start: 0, End: 2, Text: "converted"}}}}
	pipeline := NewPipeline(cfg, svc, rec, nil)
	transcriptPath, err := pipeline.Run(context.Background(), audioPath, sessionDir, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sawNormalize {
		t.Fatal("non-WAV input should be normalized first")
	}
	if got := transcript.LoadSegments(transcriptPath); len(got) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got))
	}
}

func TestWhisperRecognizerParsesOutput(t *testing.T) {
	outputDir := t.TempDir()
	wavPath := filepath.Join(outputDir, "window_000.wav")
	testsupport.WriteFile(t, wavPath, 16)

	rec := NewWhisperRecognizer(WhisperConfig{Command: "whisperx", Model: "base"})
	rec.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		payload := recognizerPayload{Segments: []RawSegment{{Start: 0.5, End: 2.25, Text: "from the cli"}}}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(outputDir, "window_000.json"), data, 0o644)
	})

	segments, err := rec.Transcribe(context.Background(), wavPath, outputDir)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "from the cli" {
		t.Fatalf("unexpected segments: %+v", segments)
	}
}

func TestWhisperRecognizerBuildArgs(t *testing.T) {
	rec := NewWhisperRecognizer(WhisperConfig{Model: "small", Language: "en"})
	args := rec.buildArgs("in.wav", "out")
	joined := strings.Join(args, " ")
	for _, want := range []string{"--model small", "--output_format json", "--language en", "--device cpu"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}
