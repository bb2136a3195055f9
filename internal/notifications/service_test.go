package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"lectern/internal/config"
	"lectern/internal/notifications"
	"lectern/internal/store"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyTranscriptionComplete(context.Background(), "Lecture 1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "transcription complete",
			send: func(svc notifications.Service) error {
				return svc.NotifyTranscriptionComplete(context.Background(), "Paging")
			},
			expectTitle:   "Lectern - Transcription Complete",
			expectMessage: "Transcript ready: Paging",
			expectTags:    "lectern,transcription,completed",
		},
		{
			name: "notes generated",
			send: func(svc notifications.Service) error {
				return svc.NotifyNotesGenerated(context.Background(), "Paging")
			},
			expectTitle:   "Lectern - Notes Generated",
			expectMessage: "Study notes ready: Paging",
			expectTags:    "lectern,notes,completed",
		},
		{
			name: "job failed",
			send: func(svc notifications.Service) error {
				return svc.NotifyJobFailed(context.Background(), store.JobKindTranscription, "Audio file was empty.")
			},
			expectTitle:    "Lectern - Job Failed",
			expectMessage:  "transcription job failed: Audio file was empty.",
			expectTags:     "lectern,job,failed",
			expectPriority: "high",
		},
		{
			name: "job failed without user message",
			send: func(svc notifications.Service) error {
				return svc.NotifyJobFailed(context.Background(), store.JobKindNotes, "")
			},
			expectTitle:    "Lectern - Job Failed",
			expectMessage:  "notes job failed: Job failed.",
			expectTags:     "lectern,job,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), io.ErrUnexpectedEOF, "transcription")
			},
			expectTitle:    "Lectern - Error",
			expectMessage:  "Error with transcription: unexpected EOF",
			expectTags:     "lectern,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
