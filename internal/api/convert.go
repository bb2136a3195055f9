package api

import (
	"encoding/json"
	"time"

	"lectern/internal/attachments"
	"lectern/internal/store"
)

// FromJob converts a store job row into its API view.
func FromJob(job *store.Job) JobView {
	if job == nil {
		return JobView{}
	}
	return JobView{
		ID:         job.ID,
		Kind:       string(job.Kind),
		Status:     string(job.Status),
		Progress:   job.Progress,
		Message:    job.Message,
		ResultPath: job.ResultPath,
		CreatedAt:  formatTime(job.CreatedAt),
		UpdatedAt:  formatTime(job.UpdatedAt),
	}
}

// FromModule converts a store module row into its API view.
func FromModule(module *store.Module) ModuleView {
	if module == nil {
		return ModuleView{}
	}
	return ModuleView{
		ID:        module.ID,
		Name:      module.Name,
		CreatedAt: formatTime(module.CreatedAt),
	}
}

// FromModules converts a slice of module rows.
func FromModules(modules []*store.Module) []ModuleView {
	views := make([]ModuleView, 0, len(modules))
	for _, module := range modules {
		views = append(views, FromModule(module))
	}
	return views
}

// FromSession converts a store session row into its API view.
func FromSession(session *store.Session) SessionView {
	if session == nil {
		return SessionView{}
	}
	return SessionView{
		ID:        session.ID,
		ModuleID:  session.ModuleID,
		Name:      session.Name,
		CreatedAt: formatTime(session.CreatedAt),
	}
}

// FromSessions converts a slice of session rows.
func FromSessions(sessions []*store.Session) []SessionView {
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, FromSession(session))
	}
	return views
}

// FromMessage converts a conversation turn with its sources.
func FromMessage(message *store.Message) MessageView {
	if message == nil {
		return MessageView{}
	}
	view := MessageView{
		ID:        message.ID,
		SessionID: message.SessionID,
		Role:      string(message.Role),
		Content:   message.Content,
		CreatedAt: formatTime(message.CreatedAt),
	}
	for _, source := range message.Sources {
		converted := SourceView{
			SourceID:    source.SourceID,
			Kind:        source.Kind,
			Label:       source.Label,
			Snippet:     source.Snippet,
			SessionName: source.SessionName,
		}
		if source.SourceJSON != "" && json.Valid([]byte(source.SourceJSON)) {
			converted.Detail = json.RawMessage(source.SourceJSON)
		}
		view.Sources = append(view.Sources, converted)
	}
	return view
}

// FromMessages converts a slice of conversation turns.
func FromMessages(messages []*store.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, FromMessage(message))
	}
	return views
}

// FromFiles converts attachment file listings.
func FromFiles(files []attachments.FileInfo) []FileView {
	views := make([]FileView, 0, len(files))
	for _, file := range files {
		views = append(views, FileView{Name: file.Name, Size: file.Size, HasText: file.HasText})
	}
	return views
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
