package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a background job in a transport-friendly format.
type JobView struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Message    string `json:"message"`
	ResultPath string `json:"resultPath,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// ModuleView describes a module.
type ModuleView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// SessionView describes a session within a module.
type SessionView struct {
	ID        string `json:"id"`
	ModuleID  string `json:"moduleId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// SourceView describes one citation attached to an assistant message.
type SourceView struct {
	SourceID    string          `json:"sourceId"`
	Kind        string          `json:"kind"`
	Label       string          `json:"label"`
	Snippet     string          `json:"snippet,omitempty"`
	SessionName string          `json:"sessionName,omitempty"`
	Detail      json.RawMessage `json:"detail,omitempty"`
}

// MessageView describes one conversation turn.
type MessageView struct {
	ID        int64        `json:"id"`
	SessionID string       `json:"sessionId"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	CreatedAt string       `json:"createdAt,omitempty"`
	Sources   []SourceView `json:"sources,omitempty"`
}

// AskRequest carries a question to the QA orchestrator.
type AskRequest struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
	Scope     string `json:"scope,omitempty"`
}

// AskResponse is the answer with its numbered citations.
type AskResponse struct {
	Answer             string          `json:"answer"`
	AnswerMarkdown     string          `json:"answerMarkdown"`
	Sources            json.RawMessage `json:"sources"`
	UserMessageID      int64           `json:"userMessageId"`
	AssistantMessageID int64           `json:"assistantMessageId"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StorePath    string             `json:"storePath"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// FileView describes an uploaded session file.
type FileView struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	HasText bool   `json:"hasText"`
}
