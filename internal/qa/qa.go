// Package qa answers questions about lecture content by retrieving transcript
// chunks and attachment excerpts and grounding a language model on them.
package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lectern/internal/attachments"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/retrieval"
	"lectern/internal/services"
	"lectern/internal/services/llm"
	"lectern/internal/store"
	"lectern/internal/transcript"
)

// excerptLimit caps how much of a matched source goes into the prompt and the
// stored citation snippet.
const excerptLimit = 220

// LLM is the language model surface the orchestrator needs.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Scope selects how much content a question runs against.
type Scope string

const (
	ScopeSession Scope = "session"
	ScopeModule  Scope = "module"
)

// Locator pins a citation to a position in the underlying material.
type Locator struct {
	Type         string  `json:"type"`
	SessionID    string  `json:"session_id,omitempty"`
	SegmentID    *int    `json:"segment_id,omitempty"`
	TStart       float64 `json:"t_start,omitempty"`
	TEnd         float64 `json:"t_end,omitempty"`
	TStartMS     int64   `json:"t_start_ms,omitempty"`
	TEndMS       int64   `json:"t_end_ms,omitempty"`
	Anchor       string  `json:"anchor,omitempty"`
	AttachmentID string  `json:"attachment_id,omitempty"`
	FileName     string  `json:"file_name,omitempty"`
	MIME         string  `json:"mime,omitempty"`
	Page         *int    `json:"page,omitempty"`
	ChunkID      string  `json:"chunk_id,omitempty"`
}

// CitedSource is one numbered excerpt backing an answer.
type CitedSource struct {
	ID          int     `json:"id"`
	SourceID    string  `json:"source_id"`
	Kind        string  `json:"kind"`
	Title       string  `json:"title"`
	Excerpt     string  `json:"excerpt"`
	SessionName string  `json:"session_name,omitempty"`
	Locator     Locator `json:"locator"`
}

// Answer is the result of one question.
type Answer struct {
	Answer             string        `json:"answer"`
	AnswerMarkdown     string        `json:"answer_markdown"`
	Sources            []CitedSource `json:"sources"`
	UserMessageID      int64         `json:"user_message_id"`
	AssistantMessageID int64         `json:"assistant_message_id"`
}

// Orchestrator wires retrieval, the language model, and persistence together.
type Orchestrator struct {
	cfg    *config.Config
	st     *store.Store
	client LLM
	logger *slog.Logger
}

// New builds an orchestrator.
func New(cfg *config.Config, st *store.Store, client LLM, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:    cfg,
		st:     st,
		client: client,
		logger: logging.WithComponent(logger, "qa"),
	}
}

type sessionChunk struct {
	transcript.Chunk
	sessionID   string
	sessionName string
}

func (c sessionChunk) RetrievalText() string { return c.Text }

type sessionAttachment struct {
	attachments.Source
	sessionID   string
	sessionName string
}

// Ask answers a question scoped to one session or its whole module, persists
// the conversation turn, and returns the answer with numbered citations.
func (o *Orchestrator) Ask(ctx context.Context, sessionID, question string, scope Scope) (*Answer, error) {
	session, err := o.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, services.Wrap(services.ErrNotFound, "qa", "ask", fmt.Sprintf("session %s", sessionID), nil)
	}

	sessions := []*store.Session{session}
	if scope == ScopeModule {
		sessions, err = o.st.ListSessions(ctx, session.ModuleID)
		if err != nil {
			return nil, err
		}
	}

	var allChunks []sessionChunk
	var allAttachments []sessionAttachment
	for _, row := range sessions {
		sessionDir := o.cfg.SessionDir(row.ModuleID, row.ID)
		for _, chunk := range o.loadChunks(sessionDir) {
			allChunks = append(allChunks, sessionChunk{Chunk: chunk, sessionID: row.ID, sessionName: row.Name})
		}
		for _, source := range attachments.LoadSources(sessionDir) {
			allAttachments = append(allAttachments, sessionAttachment{Source: source, sessionID: row.ID, sessionName: row.Name})
		}
	}

	if len(allChunks) == 0 && len(allAttachments) == 0 {
		wrapped := services.Wrap(services.ErrValidation, "qa", "ask", "no content in scope", nil)
		return nil, services.WithUserMessage(wrapped, "Upload transcript or attachments to enable Q&A.")
	}

	transcriptHits := retrieval.TopK(question, allChunks, o.transcriptHits())
	attachmentHits := retrieval.TopK(question, allAttachments, o.attachmentHits())
	sources := buildSources(transcriptHits, attachmentHits)

	prompt := buildQAPrompt(question, sources)
	raw, err := o.client.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Answer         string `json:"answer"`
		AnswerMarkdown string `json:"answer_markdown"`
	}
	if err := llm.DecodeJSON(raw, &decoded); err != nil {
		wrapped := services.Wrap(services.ErrSchema, "qa", "ask", "decode answer", err)
		return nil, services.WithUserMessage(wrapped, "AI answer response was invalid.")
	}
	if decoded.Answer == "" && decoded.AnswerMarkdown == "" {
		wrapped := services.Wrap(services.ErrSchema, "qa", "ask", "answer payload empty", nil)
		return nil, services.WithUserMessage(wrapped, "AI answer response was invalid.")
	}

	answer := &Answer{
		Answer:         decoded.Answer,
		AnswerMarkdown: decoded.AnswerMarkdown,
		Sources:        sources,
	}
	if err := o.persistTurn(ctx, session, question, answer); err != nil {
		return nil, err
	}
	o.writeLastAnswer(session, question, scope, answer)

	o.logger.Info("question answered",
		slog.String(logging.FieldSessionID, sessionID),
		slog.String("scope", string(scope)),
		slog.Int("sources", len(sources)))
	return answer, nil
}

// loadChunks prefers the published chunks.json and falls back to re-chunking
// the transcript when it is missing or unreadable.
func (o *Orchestrator) loadChunks(sessionDir string) []transcript.Chunk {
	dir := filepath.Join(sessionDir, transcript.DirName)
	chunks := transcript.LoadChunks(filepath.Join(dir, transcript.ChunksFile))
	if chunks != nil {
		return chunks
	}
	segments := transcript.LoadSegments(filepath.Join(dir, transcript.SegmentsFile))
	if len(segments) == 0 {
		return nil
	}
	rebuilt, err := transcript.BuildChunks(segments, o.cfg.Retrieval.MaxChunkChars, o.cfg.Retrieval.ChunkOverlap)
	if err != nil {
		return nil
	}
	return rebuilt
}

func (o *Orchestrator) transcriptHits() int {
	if o.cfg.Retrieval.TranscriptHits > 0 {
		return o.cfg.Retrieval.TranscriptHits
	}
	return 6
}

func (o *Orchestrator) attachmentHits() int {
	if o.cfg.Retrieval.AttachmentHits > 0 {
		return o.cfg.Retrieval.AttachmentHits
	}
	return 3
}

func buildSources(transcriptHits []sessionChunk, attachmentHits []sessionAttachment) []CitedSource {
	sources := make([]CitedSource, 0, len(transcriptHits)+len(attachmentHits))
	for _, hit := range transcriptHits {
		var segmentID *int
		if len(hit.SegmentIDs) > 0 {
			segmentID = &hit.SegmentIDs[0]
		}
		id := len(sources) + 1
		source := CitedSource{
			ID:          id,
			SourceID:    fmt.Sprintf("src_%d", id),
			Kind:        "transcript",
			Title:       fmt.Sprintf("Transcript [%s-%s]", formatTimestamp(hit.Start), formatTimestamp(hit.End)),
			Excerpt:     truncate(hit.Text, excerptLimit),
			SessionName: hit.sessionName,
			Locator: Locator{
				Type:      "transcript",
				SessionID: hit.sessionID,
				SegmentID: segmentID,
				TStart:    hit.Start,
				TEnd:      hit.End,
				TStartMS:  int64(hit.Start * 1000),
				TEndMS:    int64(hit.End * 1000),
			},
		}
		if segmentID != nil {
			source.Locator.Anchor = fmt.Sprintf("seg-%d", *segmentID)
		}
		sources = append(sources, source)
	}
	for _, hit := range attachmentHits {
		id := len(sources) + 1
		sourceID := hit.SourceID
		if sourceID == "" {
			sourceID = fmt.Sprintf("src_att_%d", id)
		}
		sources = append(sources, CitedSource{
			ID:          id,
			SourceID:    sourceID,
			Kind:        "attachment",
			Title:       fmt.Sprintf("Attachment: %s", hit.FileName),
			Excerpt:     truncate(hit.Text, excerptLimit),
			SessionName: hit.sessionName,
			Locator: Locator{
				Type:         "attachment",
				SessionID:    hit.sessionID,
				AttachmentID: hit.FileName,
				FileName:     hit.FileName,
				MIME:         hit.MIME,
				Page:         hit.Page,
				ChunkID:      hit.SourceID,
			},
		})
	}
	return sources
}

// buildQAPrompt assembles the grounding prompt. Only numbered excerpts reach
// the model, never whole transcripts.
func buildQAPrompt(question string, sources []CitedSource) string {
	context := ""
	for _, source := range sources {
		if source.Excerpt == "" {
			continue
		}
		if context != "" {
			context += "\n\n"
		}
		context += fmt.Sprintf("[%d] %s", source.ID, source.Excerpt)
	}
	return "Answer the question using ONLY the provided context. " +
		"Return JSON with keys: answer (string) and answer_markdown (string).\n\n" +
		fmt.Sprintf("Question:\n%s\n\nContext:\n%s\n", question, context)
}

func (o *Orchestrator) persistTurn(ctx context.Context, session *store.Session, question string, answer *Answer) error {
	userID, err := o.st.AppendMessage(ctx, &store.Message{
		SessionID: session.ID,
		Role:      store.RoleUser,
		Content:   question,
	})
	if err != nil {
		return fmt.Errorf("persist question: %w", err)
	}

	stored := make([]store.MessageSource, 0, len(answer.Sources))
	for _, source := range answer.Sources {
		encoded, marshalErr := json.Marshal(source)
		if marshalErr != nil {
			encoded = nil
		}
		stored = append(stored, store.MessageSource{
			SourceID:    source.SourceID,
			Kind:        source.Kind,
			Label:       source.Title,
			Snippet:     source.Excerpt,
			SessionName: session.Name,
			SourceJSON:  string(encoded),
		})
	}
	assistantID, err := o.st.AppendMessage(ctx, &store.Message{
		SessionID: session.ID,
		Role:      store.RoleAssistant,
		Content:   answer.AnswerMarkdown,
		Sources:   stored,
	})
	if err != nil {
		return fmt.Errorf("persist answer: %w", err)
	}

	answer.UserMessageID = userID
	answer.AssistantMessageID = assistantID
	return nil
}

// writeLastAnswer drops a debugging artifact next to the session's notes.
// Failures are logged, never fatal.
func (o *Orchestrator) writeLastAnswer(session *store.Session, question string, scope Scope, answer *Answer) {
	notesDir := filepath.Join(o.cfg.SessionDir(session.ModuleID, session.ID), "notes")
	if err := os.MkdirAll(notesDir, 0o755); err != nil {
		o.logger.Warn("ensure notes dir", slog.String("error", err.Error()))
		return
	}
	payload := map[string]any{
		"answer":          answer.Answer,
		"answer_markdown": answer.AnswerMarkdown,
		"sources":         answer.Sources,
		"scope":           string(scope),
		"question":        question,
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(notesDir, "last_answer.json"), encoded, 0o644); err != nil {
		o.logger.Warn("write last answer", slog.String("error", err.Error()))
	}
}

func formatTimestamp(seconds float64) string {
	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
