package qa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lectern/internal/attachments"
	"lectern/internal/services"
	"lectern/internal/services/llm"
	"lectern/internal/transcript"
)

// NotesDirName is the notes artifact directory inside a session directory.
const NotesDirName = "notes"

const (
	notesMarkdownFile = "ai_notes.md"
	notesMetaFile     = "ai_notes.json"
)

// Notes is the structured study notes output for a session.
type Notes struct {
	Summary       string   `json:"summary"`
	SuggestedTags []string `json:"suggested_tags"`
	NotesMarkdown string   `json:"notes_markdown"`
}

// ProgressFunc mirrors the job progress callback.
type ProgressFunc func(percent int, message string)

// GenerateNotes produces study notes for a session from its transcript and
// attachment text, writes them under the session's notes directory, and
// returns the path of the markdown file. Unchanged content is served from the
// store-backed cache without calling the model again.
func (o *Orchestrator) GenerateNotes(ctx context.Context, sessionID string, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	session, err := o.st.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", services.Wrap(services.ErrNotFound, "qa", "generate notes", fmt.Sprintf("session %s", sessionID), nil)
	}

	sessionDir := o.cfg.SessionDir(session.ModuleID, session.ID)
	segments := transcript.LoadSegments(filepath.Join(sessionDir, transcript.DirName, transcript.SegmentsFile))
	sources := attachments.LoadSources(sessionDir)
	if len(segments) == 0 && len(sources) == 0 {
		wrapped := services.Wrap(services.ErrValidation, "qa", "generate notes", "no content for session", nil)
		return "", services.WithUserMessage(wrapped, "Upload transcript or attachments to generate notes.")
	}

	prompt := buildNotesPrompt(segments, sources)
	contentHash := hashContent(prompt)
	notesPath := filepath.Join(sessionDir, NotesDirName, notesMarkdownFile)

	if cached, cacheErr := o.st.GetSessionSummary(ctx, sessionID); cacheErr == nil && cached != nil && cached.ContentHash == contentHash {
		if _, statErr := os.Stat(notesPath); statErr == nil {
			progress(100, "Notes generated.")
			return notesPath, nil
		}
	}

	progress(10, "Generating notes...")
	raw, err := o.client.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	var notes Notes
	if err := llm.DecodeJSON(raw, &notes); err != nil {
		wrapped := services.Wrap(services.ErrSchema, "qa", "generate notes", "decode notes", err)
		return "", services.WithUserMessage(wrapped, "AI notes response was invalid.")
	}
	if notes.NotesMarkdown == "" {
		wrapped := services.Wrap(services.ErrSchema, "qa", "generate notes", "notes payload empty", nil)
		return "", services.WithUserMessage(wrapped, "AI notes response was invalid.")
	}

	if err := writeNotes(sessionDir, notes); err != nil {
		return "", err
	}
	if err := o.st.UpsertSessionSummary(ctx, sessionID, contentHash, notes.Summary); err != nil {
		return "", fmt.Errorf("cache notes summary: %w", err)
	}

	progress(100, "Notes generated.")
	return notesPath, nil
}

// LoadNotes reads previously generated notes for a session directory. A
// missing notes file returns empty values, not an error.
func LoadNotes(sessionDir string) (markdown string, summary string, tags []string) {
	notesDir := filepath.Join(sessionDir, NotesDirName)
	if data, err := os.ReadFile(filepath.Join(notesDir, notesMarkdownFile)); err == nil {
		markdown = string(data)
	}
	if data, err := os.ReadFile(filepath.Join(notesDir, notesMetaFile)); err == nil {
		var meta struct {
			Summary       string   `json:"summary"`
			SuggestedTags []string `json:"suggested_tags"`
		}
		if err := json.Unmarshal(data, &meta); err == nil {
			summary = meta.Summary
			tags = meta.SuggestedTags
		}
	}
	return markdown, summary, tags
}

func buildNotesPrompt(segments []transcript.Segment, sources []attachments.Source) string {
	transcriptText := ""
	for _, seg := range segments {
		transcriptText += fmt.Sprintf("[%.2f-%.2f] %s\n", seg.Start, seg.End, seg.Text)
	}
	attachmentsText := ""
	for i, source := range sources {
		if i > 0 {
			attachmentsText += "\n\n"
		}
		attachmentsText += source.Text
	}
	return "You are Lectern. Create structured study notes from the content below.\n" +
		"Return JSON with keys: summary (string), suggested_tags (array of strings), notes_markdown (string).\n\n" +
		"Transcript:\n" + transcriptText + "\n\n" +
		"Attachments:\n" + attachmentsText + "\n"
}

func writeNotes(sessionDir string, notes Notes) error {
	notesDir := filepath.Join(sessionDir, NotesDirName)
	if err := os.MkdirAll(notesDir, 0o755); err != nil {
		return fmt.Errorf("ensure notes dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(notesDir, notesMarkdownFile), []byte(notes.NotesMarkdown), 0o644); err != nil {
		return fmt.Errorf("write notes markdown: %w", err)
	}
	meta := map[string]any{
		"summary":        notes.Summary,
		"suggested_tags": notes.SuggestedTags,
	}
	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notes meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(notesDir, notesMetaFile), encoded, 0o644); err != nil {
		return fmt.Errorf("write notes meta: %w", err)
	}
	return nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
