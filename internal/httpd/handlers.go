package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"lectern/internal/api"
	"lectern/internal/export"
	"lectern/internal/services"
)

// maxUploadBytes caps multipart uploads (lecture recordings included).
const maxUploadBytes = 2 << 30

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.svc.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		modules, err := s.svc.ListModules(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"modules": modules})
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if !s.readJSON(w, r, &payload) {
			return
		}
		module, err := s.svc.CreateModule(r.Context(), payload.Name)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, module)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleModuleSubtree routes /api/modules/{id}/sessions.
func (s *Server) handleModuleSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/modules/")
	moduleID, tail, _ := strings.Cut(rest, "/")
	if moduleID == "" || tail != "sessions" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		sessions, err := s.svc.ListSessions(r.Context(), moduleID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if !s.readJSON(w, r, &payload) {
			return
		}
		session, err := s.svc.CreateSession(r.Context(), moduleID, payload.Name)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, session)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSessionSubtree routes /api/sessions/{id}/<action>.
func (s *Server) handleSessionSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	sessionID, action, _ := strings.Cut(rest, "/")
	if sessionID == "" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch action {
	case "rename":
		s.handleRename(w, r, sessionID)
	case "audio":
		s.handleMultipartUpload(w, r, sessionID, s.svc.UploadAudio)
	case "attachments":
		s.handleAttachments(w, r, sessionID)
	case "transcribe":
		s.handleSubmitJob(w, r, sessionID, s.svc.SubmitTranscription)
	case "notes":
		s.handleSubmitJob(w, r, sessionID, s.svc.SubmitNotes)
	case "ai/messages":
		s.handleMessages(w, r, sessionID)
	case "export":
		s.handleExport(w, r, sessionID)
	case "export/pdf":
		s.handleExportPDF(w, r, sessionID)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if !s.readJSON(w, r, &payload) {
		return
	}
	if err := s.svc.RenameSession(r.Context(), sessionID, payload.Name); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": strings.TrimSpace(payload.Name)})
}

func (s *Server) handleAttachments(w http.ResponseWriter, r *http.Request, sessionID string) {
	switch r.Method {
	case http.MethodGet:
		files, err := s.svc.ListAttachments(r.Context(), sessionID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"files": files})
	case http.MethodPost:
		s.handleMultipartUpload(w, r, sessionID, s.svc.UploadAttachment)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request, sessionID string, submit func(ctx context.Context, sessionID string) (*api.JobView, error)) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, err := submit(r.Context(), sessionID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	messages, err := s.svc.ListMessages(r.Context(), sessionID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	opts := export.AllOptions()
	if r.ContentLength > 0 {
		if !s.readJSON(w, r, &opts) {
			return
		}
	}
	zipPath, err := s.svc.ExportSession(r.Context(), sessionID, opts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"path":     zipPath,
		"fileName": filepath.Base(zipPath),
	})
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	pdfPath, err := s.svc.ExportSessionPDF(r.Context(), sessionID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"path":     pdfPath,
		"fileName": filepath.Base(pdfPath),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	jobs, err := s.svc.ListJobs(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	job, err := s.svc.PollJob(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.AskRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	answer, err := s.svc.Ask(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleMultipartUpload(w http.ResponseWriter, r *http.Request, sessionID string, save func(ctx context.Context, sessionID, fileName string, content io.Reader) (string, error)) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing uploaded file")
		return
	}
	defer file.Close()

	name, err := save(r.Context(), sessionID, header.Filename, file)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"fileName": name})
}

// readJSON decodes the request body, answering 400 on malformed payloads.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

// writeServiceError maps the service error taxonomy onto HTTP statuses. Only
// user-facing messages cross the boundary; internals stay in the logs.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	fallback := "Something went wrong."
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
		fallback = "Not found."
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
		fallback = "Invalid request."
	case errors.Is(err, services.ErrSchema), errors.Is(err, services.ErrTransient):
		status = http.StatusBadGateway
		fallback = "The AI service returned an unusable response."
	case errors.Is(err, services.ErrExternalTool):
		status = http.StatusInternalServerError
		fallback = "A required tool failed."
	case errors.Is(err, services.ErrConfiguration):
		status = http.StatusInternalServerError
		fallback = "The server is misconfigured."
	}
	s.logger.Warn("request failed",
		slog.Int("status", status),
		slog.String("error", err.Error()))
	s.writeError(w, status, services.UserMessage(err, fallback))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
