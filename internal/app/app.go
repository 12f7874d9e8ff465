package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Application is the context object the hosting process owns: it wires
// config, logger, API client, session store, health monitor, and chat
// orchestrator together. Lifecycle is init-on-start, teardown-on-shutdown;
// there is no package-level state.
type Application struct {
	Config   Config
	Logger   *Logger
	Client   *Client
	Sessions *SessionStore
	Health   *HealthMonitor
	Chat     *Orchestrator
	Demo     bool

	logFile *os.File
}

func NewApplication(cfg Config, demo bool) (*Application, error) {
	logOut, logFile := openLogOutput()
	logger := NewLogger(logOut)

	client := NewClient(cfg, logger)

	var responder Responder = client
	var prober HealthProber = client
	if demo {
		d := NewDemoResponder()
		responder = d
		prober = d
	}

	store := NewSessionStore()
	health := NewHealthMonitor(prober, cfg.HealthRetry(), logger)
	chat := NewOrchestrator(store, health, responder, logger)

	return &Application{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Sessions: store,
		Health:   health,
		Chat:     chat,
		Demo:     demo,
		logFile:  logFile,
	}, nil
}

// Start begins background health monitoring.
func (a *Application) Start(ctx context.Context) {
	a.Health.Start(ctx)
}

// Shutdown tears down recurring work deterministically.
func (a *Application) Shutdown() {
	a.Health.Stop()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// TrackUpload builds a tracker for a server-assigned ingestion job.
func (a *Application) TrackUpload(jobID string) *UploadTracker {
	return NewUploadTracker(a.Client, jobID, a.Config.PollInterval(), a.Logger)
}

// openLogOutput logs to a file under the user config dir so the TUI screen
// stays clean; discards when the dir is unavailable.
func openLogOutput() (io.Writer, *os.File) {
	base, err := os.UserConfigDir()
	if err != nil {
		return io.Discard, nil
	}
	dir := filepath.Join(base, "docassist")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return io.Discard, nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "docassist.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return io.Discard, nil
	}
	return f, f
}
