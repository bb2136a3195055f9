package httpd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"lectern/internal/api"
	"lectern/internal/attachments"
	"lectern/internal/httpd"
	"lectern/internal/jobs"
	"lectern/internal/media/audio"
	"lectern/internal/qa"
	"lectern/internal/testsupport"
	"lectern/internal/transcribe"
)

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return `{"answer":"Answer.","answer_markdown":"Answer [1]."}`, nil
}

type stubRecognizer struct{}

func (stubRecognizer) Transcribe(ctx context.Context, wavPath, outputDir string) ([]transcribe.RawSegment, error) {
	return []transcribe.RawSegment{{Start: 0, End: 4, Text: "hello paging"}}, nil
}

func fakeRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	if strings.Contains(name, "ffprobe") {
		return []byte(`{"format":{"duration":"45"}}`), nil
	}
	dest := args[len(args)-1]
	return nil, os.WriteFile(dest, []byte("wav"), 0o644)
}

func startServer(t *testing.T) (baseURL string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	exec := jobs.NewExecutor(st, nil, jobs.WithInline(true))
	audioSvc := audio.NewService("fake-ffmpeg", "fake-ffprobe", audio.WithRunner(fakeRunner))
	pipeline := transcribe.NewPipeline(cfg, audioSvc, stubRecognizer{}, nil)
	orchestrator := qa.New(cfg, st, stubLLM{}, nil)
	svc := api.NewService(cfg, st, exec, pipeline, orchestrator, attachments.NewIndexer(nil), nil)

	server := httpd.NewServer(cfg, svc, nil)
	if server == nil {
		t.Fatal("server should be enabled for a bound address")
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := server.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		server.Stop()
	})
	return "http://" + server.Addr()
}

func doJSON(t *testing.T, method, url string, body any, target any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func uploadFile(t *testing.T, url, fileName, content string) int {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	resp, err := http.Post(url, writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestEndToEndFlow(t *testing.T) {
	base := startServer(t)

	var module api.ModuleView
	if status := doJSON(t, http.MethodPost, base+"/api/modules", map[string]string{"name": "OS"}, &module); status != http.StatusCreated {
		t.Fatalf("create module: status %d", status)
	}
	var session api.SessionView
	if status := doJSON(t, http.MethodPost, base+"/api/modules/"+module.ID+"/sessions", map[string]string{"name": "Paging"}, &session); status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}

	if status := uploadFile(t, base+"/api/sessions/"+session.ID+"/audio", "lecture.wav", "wav-bytes"); status != http.StatusCreated {
		t.Fatalf("upload audio: status %d", status)
	}

	var submitted struct {
		Job api.JobView `json:"job"`
	}
	if status := doJSON(t, http.MethodPost, base+"/api/sessions/"+session.ID+"/transcribe", nil, &submitted); status != http.StatusAccepted {
		t.Fatalf("submit transcription: status %d", status)
	}
	if submitted.Job.Status != "success" {
		t.Fatalf("inline job should complete: %+v", submitted.Job)
	}

	var polled struct {
		Job api.JobView `json:"job"`
	}
	if status := doJSON(t, http.MethodGet, base+"/api/jobs/"+submitted.Job.ID, nil, &polled); status != http.StatusOK {
		t.Fatalf("poll job: status %d", status)
	}
	if polled.Job.Progress != 100 {
		t.Fatalf("expected terminal progress, got %+v", polled.Job)
	}

	var answer api.AskResponse
	ask := api.AskRequest{SessionID: session.ID, Question: "what is paging"}
	if status := doJSON(t, http.MethodPost, base+"/api/ai/ask", ask, &answer); status != http.StatusOK {
		t.Fatalf("ask: status %d", status)
	}
	if answer.Answer != "Answer." {
		t.Fatalf("unexpected answer: %+v", answer)
	}

	var history struct {
		Messages []api.MessageView `json:"messages"`
	}
	if status := doJSON(t, http.MethodGet, base+"/api/sessions/"+session.ID+"/ai/messages", nil, &history); status != http.StatusOK {
		t.Fatalf("messages: status %d", status)
	}
	if len(history.Messages) != 2 {
		t.Fatalf("expected two turns, got %d", len(history.Messages))
	}

	var exported struct {
		Path string `json:"path"`
	}
	if status := doJSON(t, http.MethodPost, base+"/api/sessions/"+session.ID+"/export", nil, &exported); status != http.StatusOK {
		t.Fatalf("export: status %d", status)
	}
	if _, err := os.Stat(exported.Path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
}

func TestErrorStatuses(t *testing.T) {
	base := startServer(t)

	var payload struct {
		Error string `json:"error"`
	}
	// Unknown session is 404, not 400.
	if status := doJSON(t, http.MethodPost, base+"/api/sessions/missing/transcribe", nil, &payload); status != http.StatusNotFound {
		t.Fatalf("unknown session: status %d", status)
	}
	// Unknown job is 404.
	if status := doJSON(t, http.MethodGet, base+"/api/jobs/missing", nil, &payload); status != http.StatusNotFound {
		t.Fatalf("unknown job: status %d", status)
	}

	var module api.ModuleView
	doJSON(t, http.MethodPost, base+"/api/modules", map[string]string{"name": "OS"}, &module)
	var session api.SessionView
	doJSON(t, http.MethodPost, base+"/api/modules/"+module.ID+"/sessions", map[string]string{"name": "S"}, &session)

	// Transcription without audio is a 400 with the user-facing message.
	if status := doJSON(t, http.MethodPost, base+"/api/sessions/"+session.ID+"/transcribe", nil, &payload); status != http.StatusBadRequest {
		t.Fatalf("no audio: status %d", status)
	}
	if payload.Error != "Upload an audio file first." {
		t.Fatalf("unexpected error message: %q", payload.Error)
	}

	// Asking with no content in scope is a 400 with the QA message.
	ask := api.AskRequest{SessionID: session.ID, Question: "anything"}
	if status := doJSON(t, http.MethodPost, base+"/api/ai/ask", ask, &payload); status != http.StatusBadRequest {
		t.Fatalf("empty scope: status %d", status)
	}
	if payload.Error != "Upload transcript or attachments to enable Q&A." {
		t.Fatalf("unexpected error message: %q", payload.Error)
	}

	// Malformed JSON is rejected before reaching the service layer.
	resp, err := http.Post(base+"/api/modules", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("post malformed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", resp.StatusCode)
	}

	// Wrong method is 405.
	resp, err = http.Get(base + "/api/ai/ask")
	if err != nil {
		t.Fatalf("get ask: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: status %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	base := startServer(t)
	var status api.DaemonStatus
	if code := doJSON(t, http.MethodGet, base+"/api/status", nil, &status); code != http.StatusOK {
		t.Fatalf("status endpoint: %d", code)
	}
	if !status.Running || len(status.Dependencies) == 0 {
		t.Fatalf("unexpected status payload: %+v", status)
	}
}
