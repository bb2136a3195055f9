package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrExternalTool, "transcribe", "normalize", "ffmpeg missing", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	want := "external tool error: transcribe: normalize: ffmpeg missing"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "transcribe", "window", "", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
}

func TestUserMessageRoundTrip(t *testing.T) {
	base := Wrap(ErrExternalTool, "transcribe", "normalize", "ffmpeg not found", nil)
	err := WithUserMessage(base, "ffmpeg is required to convert audio. Install ffmpeg or upload a WAV file.")

	if got := UserMessage(err, "Job failed."); got != "ffmpeg is required to convert audio. Install ffmpeg or upload a WAV file." {
		t.Fatalf("unexpected user message: %q", got)
	}
	if !errors.Is(err, ErrExternalTool) {
		t.Fatal("user message wrapper must not hide the marker")
	}
}

func TestUserMessageSurvivesFurtherWrapping(t *testing.T) {
	err := WithUserMessage(errors.New("boom"), "Audio file was empty.")
	wrapped := fmt.Errorf("run transcription: %w", err)
	if got := UserMessage(wrapped, "Job failed."); got != "Audio file was empty." {
		t.Fatalf("unexpected user message: %q", got)
	}
}

func TestUserMessageFallback(t *testing.T) {
	if got := UserMessage(errors.New("internal"), "Job failed."); got != "Job failed." {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := UserMessage(nil, "Job failed."); got != "Job failed." {
		t.Fatalf("expected fallback for nil error, got %q", got)
	}
}
