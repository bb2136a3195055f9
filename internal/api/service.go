package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/attachments"
	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/export"
	"lectern/internal/jobs"
	"lectern/internal/logging"
	"lectern/internal/qa"
	"lectern/internal/services"
	"lectern/internal/store"
	"lectern/internal/transcribe"
	"lectern/internal/transcript"
)

// audioDirName is the upload directory inside a session directory.
const audioDirName = "audio"

var allowedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
}

// Service exposes lectern's operations as plain request/response calls. Both
// the HTTP daemon and the CLI go through it.
type Service struct {
	cfg      *config.Config
	st       *store.Store
	exec     *jobs.Executor
	pipeline *transcribe.Pipeline
	qa       *qa.Orchestrator
	indexer  *attachments.Indexer
	logger   *slog.Logger
}

// NewService wires the service layer over its collaborators.
func NewService(cfg *config.Config, st *store.Store, exec *jobs.Executor, pipeline *transcribe.Pipeline, orchestrator *qa.Orchestrator, indexer *attachments.Indexer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:      cfg,
		st:       st,
		exec:     exec,
		pipeline: pipeline,
		qa:       orchestrator,
		indexer:  indexer,
		logger:   logging.WithComponent(logger, "api"),
	}
}

// CreateModule registers a new module.
func (s *Service) CreateModule(ctx context.Context, name string) (*ModuleView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		wrapped := services.Wrap(services.ErrValidation, "api", "create module", "empty name", nil)
		return nil, services.WithUserMessage(wrapped, "Module name is required.")
	}
	module, err := s.st.CreateModule(ctx, name)
	if err != nil {
		return nil, err
	}
	view := FromModule(module)
	return &view, nil
}

// ListModules returns all modules.
func (s *Service) ListModules(ctx context.Context) ([]ModuleView, error) {
	modules, err := s.st.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	return FromModules(modules), nil
}

// CreateSession registers a new session under a module.
func (s *Service) CreateSession(ctx context.Context, moduleID, name string) (*SessionView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		wrapped := services.Wrap(services.ErrValidation, "api", "create session", "empty name", nil)
		return nil, services.WithUserMessage(wrapped, "Session name is required.")
	}
	module, err := s.st.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "create session", fmt.Sprintf("module %s", moduleID), nil)
	}
	session, err := s.st.CreateSession(ctx, moduleID, name)
	if err != nil {
		return nil, err
	}
	view := FromSession(session)
	return &view, nil
}

// ListSessions returns the sessions of a module.
func (s *Service) ListSessions(ctx context.Context, moduleID string) ([]SessionView, error) {
	module, err := s.st.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if module == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "list sessions", fmt.Sprintf("module %s", moduleID), nil)
	}
	sessions, err := s.st.ListSessions(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	return FromSessions(sessions), nil
}

// RenameSession updates a session's display name.
func (s *Service) RenameSession(ctx context.Context, sessionID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		wrapped := services.Wrap(services.ErrValidation, "api", "rename session", "empty name", nil)
		return services.WithUserMessage(wrapped, "Session name is required.")
	}
	if _, err := s.requireSession(ctx, sessionID, "rename session"); err != nil {
		return err
	}
	return s.st.RenameSession(ctx, sessionID, name)
}

// UploadAudio stores a recording in the session's audio directory and returns
// the stored file name.
func (s *Service) UploadAudio(ctx context.Context, sessionID, fileName string, content io.Reader) (string, error) {
	session, err := s.requireSession(ctx, sessionID, "upload audio")
	if err != nil {
		return "", err
	}
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "" || base == "." || !allowedAudioExtensions[strings.ToLower(filepath.Ext(base))] {
		wrapped := services.Wrap(services.ErrValidation, "api", "upload audio", fmt.Sprintf("unsupported file %q", fileName), nil)
		return "", services.WithUserMessage(wrapped, "Unsupported audio file type.")
	}

	dir := filepath.Join(s.cfg.SessionDir(session.ModuleID, session.ID), audioDirName)
	if err := s.saveUpload(dir, base, content); err != nil {
		return "", fmt.Errorf("store audio upload: %w", err)
	}
	s.logger.Info("audio uploaded",
		slog.String(logging.FieldSessionID, sessionID),
		slog.String("file", base))
	return base, nil
}

// UploadAttachment stores a document in the session's attachments directory
// and rebuilds the extraction index.
func (s *Service) UploadAttachment(ctx context.Context, sessionID, fileName string, content io.Reader) (string, error) {
	session, err := s.requireSession(ctx, sessionID, "upload attachment")
	if err != nil {
		return "", err
	}
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "" || base == "." || !attachments.Allowed(base) {
		wrapped := services.Wrap(services.ErrValidation, "api", "upload attachment", fmt.Sprintf("unsupported file %q", fileName), nil)
		return "", services.WithUserMessage(wrapped, "Unsupported attachment type.")
	}

	sessionDir := s.cfg.SessionDir(session.ModuleID, session.ID)
	if err := s.saveUpload(filepath.Join(sessionDir, attachments.DirName), base, content); err != nil {
		return "", fmt.Errorf("store attachment upload: %w", err)
	}
	if err := s.indexer.RebuildIndex(sessionDir); err != nil {
		return "", err
	}
	s.logger.Info("attachment uploaded",
		slog.String(logging.FieldSessionID, sessionID),
		slog.String("file", base))
	return base, nil
}

// ListAttachments lists the uploaded documents of a session.
func (s *Service) ListAttachments(ctx context.Context, sessionID string) ([]FileView, error) {
	session, err := s.requireSession(ctx, sessionID, "list attachments")
	if err != nil {
		return nil, err
	}
	files, err := attachments.ListFiles(s.cfg.SessionDir(session.ModuleID, session.ID))
	if err != nil {
		return nil, err
	}
	return FromFiles(files), nil
}

// SubmitTranscription queues a transcription job for the session's most
// recent audio upload and returns the queued job.
func (s *Service) SubmitTranscription(ctx context.Context, sessionID string) (*JobView, error) {
	session, err := s.requireSession(ctx, sessionID, "submit transcription")
	if err != nil {
		return nil, err
	}
	sessionDir := s.cfg.SessionDir(session.ModuleID, session.ID)
	audioPath, err := latestAudio(filepath.Join(sessionDir, audioDirName))
	if err != nil {
		return nil, err
	}
	if audioPath == "" {
		wrapped := services.Wrap(services.ErrValidation, "api", "submit transcription", "no audio uploaded", nil)
		return nil, services.WithUserMessage(wrapped, "Upload an audio file first.")
	}

	job, err := s.exec.Submit(ctx, store.JobKindTranscription, func(ctx context.Context, progress jobs.Progress) (string, error) {
		return s.pipeline.Run(ctx, audioPath, sessionDir, transcribe.ProgressFunc(progress))
	})
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// SubmitNotes queues a notes-generation job for the session.
func (s *Service) SubmitNotes(ctx context.Context, sessionID string) (*JobView, error) {
	if _, err := s.requireSession(ctx, sessionID, "submit notes"); err != nil {
		return nil, err
	}
	job, err := s.exec.Submit(ctx, store.JobKindNotes, func(ctx context.Context, progress jobs.Progress) (string, error) {
		return s.qa.GenerateNotes(ctx, sessionID, qa.ProgressFunc(progress))
	})
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// PollJob returns the current state of a job.
func (s *Service) PollJob(ctx context.Context, jobID string) (*JobView, error) {
	job, err := s.exec.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "poll job", fmt.Sprintf("job %s", jobID), nil)
	}
	view := FromJob(job)
	return &view, nil
}

// ListJobs returns recent jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]JobView, error) {
	rows, err := s.st.ListJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(rows))
	for _, job := range rows {
		views = append(views, FromJob(job))
	}
	return views, nil
}

// Ask answers a question against the session or module scope.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		wrapped := services.Wrap(services.ErrValidation, "api", "ask", "empty question", nil)
		return nil, services.WithUserMessage(wrapped, "Enter a question.")
	}
	scope := qa.ScopeSession
	if strings.EqualFold(req.Scope, string(qa.ScopeModule)) {
		scope = qa.ScopeModule
	}

	answer, err := s.qa.Ask(ctx, req.SessionID, question, scope)
	if err != nil {
		return nil, err
	}
	sources, err := json.Marshal(answer.Sources)
	if err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}
	return &AskResponse{
		Answer:             answer.Answer,
		AnswerMarkdown:     answer.AnswerMarkdown,
		Sources:            sources,
		UserMessageID:      answer.UserMessageID,
		AssistantMessageID: answer.AssistantMessageID,
	}, nil
}

// ListMessages returns the conversation history of a session.
func (s *Service) ListMessages(ctx context.Context, sessionID string) ([]MessageView, error) {
	if _, err := s.requireSession(ctx, sessionID, "list messages"); err != nil {
		return nil, err
	}
	messages, err := s.st.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return FromMessages(messages), nil
}

// ExportSession builds a ZIP pack of the session's artifacts and returns its
// path.
func (s *Service) ExportSession(ctx context.Context, sessionID string, opts export.Options) (string, error) {
	session, err := s.requireSession(ctx, sessionID, "export session")
	if err != nil {
		return "", err
	}
	module, err := s.st.GetModule(ctx, session.ModuleID)
	if err != nil {
		return "", err
	}
	if module == nil {
		return "", services.Wrap(services.ErrNotFound, "api", "export session", fmt.Sprintf("module %s", session.ModuleID), nil)
	}
	opts.Model = s.cfg.LLM.Model
	return export.BuildSessionPack(module, session, s.cfg.SessionDir(session.ModuleID, session.ID), opts)
}

// ExportSessionPDF renders the session transcript and notes into a PDF and
// returns its path.
func (s *Service) ExportSessionPDF(ctx context.Context, sessionID string) (string, error) {
	session, err := s.requireSession(ctx, sessionID, "export pdf")
	if err != nil {
		return "", err
	}
	sessionDir := s.cfg.SessionDir(session.ModuleID, session.ID)

	var transcriptText string
	if data, readErr := os.ReadFile(filepath.Join(sessionDir, transcript.DirName, transcript.TextFile)); readErr == nil {
		transcriptText = string(data)
	}
	notesMarkdown, _, _ := qa.LoadNotes(sessionDir)

	outPath := filepath.Join(sessionDir, export.DirName, "session.pdf")
	if err := export.WriteSessionPDF(session, transcriptText, notesMarkdown, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// Status reports daemon health information.
func (s *Service) Status(ctx context.Context) (*DaemonStatus, error) {
	statuses := deps.CheckBinaries(deps.DefaultRequirements(s.cfg))
	converted := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		converted = append(converted, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return &DaemonStatus{
		Running:      true,
		PID:          os.Getpid(),
		StorePath:    s.st.Path(),
		Dependencies: converted,
	}, nil
}

func (s *Service) requireSession(ctx context.Context, sessionID, operation string) (*store.Session, error) {
	session, err := s.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", operation, fmt.Sprintf("session %s", sessionID), nil)
	}
	return session, nil
}

func (s *Service) saveUpload(dir, name string, content io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, content); err != nil {
		return err
	}
	return out.Close()
}

// latestAudio returns the most recently modified audio file in dir, or empty
// when none exists.
func latestAudio(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read audio dir: %w", err)
	}
	var best string
	var bestMod int64
	for _, entry := range entries {
		if entry.IsDir() || !allowedAudioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); best == "" || mod > bestMod {
			best = filepath.Join(dir, entry.Name())
			bestMod = mod
		}
	}
	return best, nil
}
