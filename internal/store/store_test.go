package store_test

import (
	"context"
	"testing"

	"lectern/internal/store"
	"lectern/internal/testsupport"
)

func TestJobLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, store.JobKindTranscription)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Status != store.JobQueued || job.Progress != 0 {
		t.Fatalf("unexpected new job state: %+v", job)
	}

	if err := st.MarkJobInProgress(ctx, job.ID); err != nil {
		t.Fatalf("MarkJobInProgress: %v", err)
	}
	if err := st.UpdateJobProgress(ctx, job.ID, 40, "window 2/5"); err != nil {
		t.Fatalf("UpdateJobProgress: %v", err)
	}

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != store.JobInProgress || got.Progress != 40 || got.Message != "window 2/5" {
		t.Fatalf("unexpected mid-flight state: %+v", got)
	}

	if err := st.CompleteJob(ctx, job.ID, "/tmp/transcript.json"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	got, err = st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != store.JobSuccess || got.Progress != 100 {
		t.Fatalf("unexpected terminal state: %+v", got)
	}
	if got.ResultPath != "/tmp/transcript.json" {
		t.Fatalf("unexpected result path: %q", got.ResultPath)
	}
	if !got.Status.Terminal() {
		t.Fatal("success should be terminal")
	}
}

func TestFailJobKeepsUserMessage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, store.JobKindTranscription)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := st.FailJob(ctx, job.ID, "Audio file was empty."); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != store.JobError {
		t.Fatalf("expected error status, got %q", got.Status)
	}
	if got.Message != "Audio file was empty." {
		t.Fatalf("unexpected message: %q", got.Message)
	}
}

func TestGetJobMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	job, err := st.GetJob(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for missing job, got %+v", job)
	}
}

func TestModuleAndSessionCRUD(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	module, err := st.CreateModule(ctx, "Operating Systems")
	if err != nil {
		t.Fatalf("CreateModule: %v", err)
	}
	first, err := st.CreateSession(ctx, module.ID, "Week 1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := st.CreateSession(ctx, module.ID, "Week 2"); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sessions, err := st.ListSessions(ctx, module.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Fatalf("expected creation order, got %q first", sessions[0].Name)
	}

	if err := st.RenameSession(ctx, first.ID, "Week 1: Scheduling"); err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	renamed, err := st.GetSession(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if renamed.Name != "Week 1: Scheduling" {
		t.Fatalf("rename not persisted: %q", renamed.Name)
	}

	modules, err := st.ListModules(ctx)
	if err != nil {
		t.Fatalf("ListModules: %v", err)
	}
	if len(modules) != 1 || modules[0].Name != "Operating Systems" {
		t.Fatalf("unexpected modules: %+v", modules)
	}
}

func TestAppendAndListMessages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	session := testsupport.NewSession(t, st, "Databases", "Indexes")

	if _, err := st.AppendMessage(ctx, &store.Message{
		SessionID: session.ID,
		Role:      store.RoleUser,
		Content:   "What is a B-tree?",
	}); err != nil {
		t.Fatalf("AppendMessage user: %v", err)
	}
	if _, err := st.AppendMessage(ctx, &store.Message{
		SessionID: session.ID,
		Role:      store.RoleAssistant,
		Content:   "A balanced tree used for indexes [1].",
		Sources: []store.MessageSource{
			{
				SourceID:    "3",
				Kind:        "transcript",
				Label:       "Indexes, 12.00-18.50",
				Snippet:     "a B-tree keeps keys sorted",
				SessionName: "Indexes",
			},
		},
	}); err != nil {
		t.Fatalf("AppendMessage assistant: %v", err)
	}

	messages, err := st.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != store.RoleUser || len(messages[0].Sources) != 0 {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	assistant := messages[1]
	if assistant.Role != store.RoleAssistant || len(assistant.Sources) != 1 {
		t.Fatalf("unexpected assistant message: %+v", assistant)
	}
	if assistant.Sources[0].Label != "Indexes, 12.00-18.50" {
		t.Fatalf("unexpected source: %+v", assistant.Sources[0])
	}
}

func TestSummaryCacheRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	session := testsupport.NewSession(t, st, "Networks", "TCP")

	missing, err := st.GetSessionSummary(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionSummary: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil summary, got %+v", missing)
	}

	if err := st.UpsertSessionSummary(ctx, session.ID, "hash-1", "first"); err != nil {
		t.Fatalf("UpsertSessionSummary: %v", err)
	}
	if err := st.UpsertSessionSummary(ctx, session.ID, "hash-2", "second"); err != nil {
		t.Fatalf("UpsertSessionSummary overwrite: %v", err)
	}

	got, err := st.GetSessionSummary(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionSummary: %v", err)
	}
	if got == nil || got.ContentHash != "hash-2" || got.Summary != "second" {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestSchemaVersionMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	st.Close()

	// Reopening against the same file succeeds while versions match.
	again, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	again.Close()
}
