package store

import "time"

// JobStatus represents the lifecycle of a background job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobInProgress JobStatus = "in_progress"
	JobSuccess    JobStatus = "success"
	JobError      JobStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobError
}

// JobKind names the work a job performs.
type JobKind string

const (
	JobKindTranscription JobKind = "transcription"
	JobKindNotes         JobKind = "notes"
)

// Job is a background work item persisted for polling.
type Job struct {
	ID         string
	Kind       JobKind
	Status     JobStatus
	Progress   int
	Message    string
	ResultPath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Module groups the sessions of a single course or lecture series.
type Module struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Session is one recorded lecture inside a module.
type Session struct {
	ID        string
	ModuleID  string
	Name      string
	CreatedAt time.Time
}

// MessageRole distinguishes user questions from assistant answers.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of an assistant conversation tied to a session.
type Message struct {
	ID        int64
	SessionID string
	Role      MessageRole
	Content   string
	CreatedAt time.Time
	Sources   []MessageSource
}

// MessageSource records one cited excerpt backing an assistant answer.
type MessageSource struct {
	ID          int64
	MessageID   int64
	SourceID    string
	Kind        string
	Label       string
	Snippet     string
	SessionName string
	SourceJSON  string
}

// Summary caches generated notes keyed by a hash of the underlying content.
type Summary struct {
	ContentHash string
	Summary     string
	UpdatedAt   time.Time
}
