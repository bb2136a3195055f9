// Package daemon wires lectern's long-running services together and enforces
// single-instance execution with a file lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lectern/internal/api"
	"lectern/internal/attachments"
	"lectern/internal/config"
	"lectern/internal/httpd"
	"lectern/internal/jobs"
	"lectern/internal/logging"
	"lectern/internal/media/audio"
	"lectern/internal/notifications"
	"lectern/internal/qa"
	"lectern/internal/services/llm"
	"lectern/internal/store"
	"lectern/internal/transcribe"
)

// Daemon owns the store, the job executor, and the HTTP API.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	st       *store.Store
	exec     *jobs.Executor
	server   *httpd.Server
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon and its service graph over an open store.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	notifier := notifications.NewService(cfg)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		st:       st,
		notifier: notifier,
		lockPath: filepath.Join(cfg.Paths.DataDir, "lecternd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	workers := cfg.Jobs.Workers
	d.exec = jobs.NewExecutor(st, logger,
		jobs.WithWorkers(workers),
		jobs.WithTerminalHook(d.onJobTerminal))

	audioSvc := audio.NewService(cfg.Transcription.FFmpegCommand, cfg.Transcription.FFprobeCommand)
	recognizer := transcribe.NewWhisperRecognizer(transcribe.WhisperConfig{
		Command:  cfg.Transcription.WhisperCommand,
		Model:    cfg.Transcription.WhisperModel,
		Language: cfg.Transcription.Language,
	})
	pipeline := transcribe.NewPipeline(cfg, audioSvc, recognizer, logger)

	client := llm.NewClient(cfg.LLM)
	orchestrator := qa.New(cfg, st, client, logger)
	indexer := attachments.NewIndexer(logger)

	svc := api.NewService(cfg, st, d.exec, pipeline, orchestrator, indexer, logger)
	d.server = httpd.NewServer(cfg, svc, logger)
	return d, nil
}

// Start acquires the instance lock and launches the executor and HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.exec.Start(runCtx)
	if d.server != nil {
		if err := d.server.Start(runCtx); err != nil {
			cancel()
			d.cancel = nil
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("lectern daemon started", slog.String("lock", d.lockPath))
	return nil
}

// Stop shuts background processing down and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.Stop()
	}
	d.exec.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", slog.String("error", err.Error()))
	}
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.st != nil {
		return d.st.Close()
	}
	return nil
}

// Addr reports the HTTP listener address once started.
func (d *Daemon) Addr() string {
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// LockPath reports the instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// onJobTerminal pushes a notification when a job reaches a final state.
func (d *Daemon) onJobTerminal(job *store.Job) {
	ctx := context.Background()
	if job.Status == store.JobError {
		if err := d.notifier.NotifyJobFailed(ctx, job.Kind, job.Message); err != nil {
			d.logger.Warn("job failure notification", slog.String("error", err.Error()))
		}
		return
	}

	sessionName := d.sessionNameForResult(ctx, job.ResultPath)
	var err error
	switch job.Kind {
	case store.JobKindTranscription:
		err = d.notifier.NotifyTranscriptionComplete(ctx, sessionName)
	case store.JobKindNotes:
		err = d.notifier.NotifyNotesGenerated(ctx, sessionName)
	}
	if err != nil {
		d.logger.Warn("job completion notification", slog.String("error", err.Error()))
	}
}

// sessionNameForResult resolves the owning session of a result artifact laid
// out as <data>/modules/<m>/sessions/<s>/<dir>/<file>.
func (d *Daemon) sessionNameForResult(ctx context.Context, resultPath string) string {
	if strings.TrimSpace(resultPath) == "" {
		return ""
	}
	sessionID := filepath.Base(filepath.Dir(filepath.Dir(resultPath)))
	session, err := d.st.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return sessionID
	}
	return session.Name
}
