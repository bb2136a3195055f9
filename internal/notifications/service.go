package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/store"
)

const userAgent = "Lectern-Go/0.1.0"

// Service defines the notification surface exposed to job and API components.
type Service interface {
	NotifyTranscriptionComplete(ctx context.Context, sessionName string) error
	NotifyNotesGenerated(ctx context.Context, sessionName string) error
	NotifyJobFailed(ctx context.Context, kind store.JobKind, userMessage string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyTranscriptionComplete(ctx context.Context, sessionName string) error {
	sessionName = strings.TrimSpace(sessionName)
	data := payload{
		title:   "Lectern - Transcription Complete",
		message: fmt.Sprintf("Transcript ready: %s", sessionName),
		tags:    []string{"lectern", "transcription", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyNotesGenerated(ctx context.Context, sessionName string) error {
	sessionName = strings.TrimSpace(sessionName)
	data := payload{
		title:   "Lectern - Notes Generated",
		message: fmt.Sprintf("Study notes ready: %s", sessionName),
		tags:    []string{"lectern", "notes", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, kind store.JobKind, userMessage string) error {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		userMessage = "Job failed."
	}
	data := payload{
		title:    "Lectern - Job Failed",
		message:  fmt.Sprintf("%s job failed: %s", kind, userMessage),
		tags:     []string{"lectern", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Lectern - Error",
		message:  builder.String(),
		tags:     []string{"lectern", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lectern - Test",
		message:  "Notification system test",
		tags:     []string{"lectern", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTranscriptionComplete(context.Context, string) error { return nil }
func (noopService) NotifyNotesGenerated(context.Context, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, store.JobKind, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error { return nil }
