package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/services"
)

type call struct {
	name string
	args []string
}

func recordingRunner(calls *[]call, output []byte, err error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{name: name, args: args})
		return output, err
	}
}

func stubFFmpegOnPath(t *testing.T) string {
	t.Helper()
	binDir := t.TempDir()
	path := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestNormalizeBuildsExpectedArgs(t *testing.T) {
	ffmpeg := stubFFmpegOnPath(t)
	var calls []call
	svc := NewService(ffmpeg, "ffprobe", WithRunner(recordingRunner(&calls, nil, nil)))

	if err := svc.Normalize(context.Background(), "/in/lecture.m4a", "/out/audio.wav"); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(calls) != 1 || calls[0].name != ffmpeg {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	joined := strings.Join(calls[0].args, " ")
	for _, want := range []string{"-ac 1", "-ar 16000", "-c:a pcm_s16le", "-i /in/lecture.m4a", "/out/audio.wav"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}

func TestNormalizeMissingFFmpegHasUserMessage(t *testing.T) {
	svc := NewService("definitely-not-ffmpeg-binary", "ffprobe")
	err := svc.Normalize(context.Background(), "in.m4a", "out.wav")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	msg := services.UserMessage(err, "Job failed.")
	if !strings.Contains(msg, "ffmpeg is required") {
		t.Fatalf("unexpected user message: %q", msg)
	}
}

func TestNormalizeConversionFailureHasUserMessage(t *testing.T) {
	ffmpeg := stubFFmpegOnPath(t)
	var calls []call
	svc := NewService(ffmpeg, "ffprobe",
		WithRunner(recordingRunner(&calls, []byte("corrupt input"), errors.New("exit status 1"))))

	err := svc.Normalize(context.Background(), "in.m4a", "out.wav")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	msg := services.UserMessage(err, "Job failed.")
	if msg != "Could not convert audio to WAV. Please try another file." {
		t.Fatalf("unexpected user message: %q", msg)
	}
}

func TestExtractWindowArgs(t *testing.T) {
	var calls []call
	svc := NewService("ffmpeg", "ffprobe", WithRunner(recordingRunner(&calls, nil, nil)))

	if err := svc.ExtractWindow(context.Background(), "audio.wav", 1200, 600, "window.wav"); err != nil {
		t.Fatalf("ExtractWindow: %v", err)
	}
	joined := strings.Join(calls[0].args, " ")
	if !strings.Contains(joined, "-ss 1200 -t 600") {
		t.Fatalf("seek args missing: %s", joined)
	}
}

func TestExtractWindowRejectsBadDuration(t *testing.T) {
	svc := NewService("ffmpeg", "ffprobe")
	err := svc.ExtractWindow(context.Background(), "audio.wav", 0, 0, "window.wav")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDurationParsesProbeOutput(t *testing.T) {
	var calls []call
	payload := []byte(`{"format":{"duration":"1234.56"}}`)
	svc := NewService("ffmpeg", "ffprobe", WithRunner(recordingRunner(&calls, payload, nil)))

	duration, err := svc.Duration(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if duration != 1234.56 {
		t.Fatalf("unexpected duration: %v", duration)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	var calls []call
	svc := NewService("ffmpeg", "ffprobe", WithRunner(recordingRunner(&calls, []byte(`{"format":{}}`), nil)))
	if _, err := svc.Duration(context.Background(), "audio.wav"); err == nil {
		t.Fatal("expected error for missing duration")
	}
	if _, err := svc.Duration(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
