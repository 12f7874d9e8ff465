package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

type FileProgress struct {
	PagesTotal  int     `json:"pages_total"`
	ChunksTotal int     `json:"chunks_total"`
	ChunksDone  int     `json:"chunks_done"`
	Percent     float64 `json:"percent"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
}

type OverallProgress struct {
	Percent     float64 `json:"percent"`
	ChunksTotal int     `json:"chunks_total"`
	ChunksDone  int     `json:"chunks_done"`
}

// JobSnapshot is the server's view of an ingestion job. Overall is
// authoritative; per-file progress is informational rollup, and the job
// terminates on Status alone.
type JobSnapshot struct {
	JobID   string                  `json:"job_id"`
	Status  JobStatus               `json:"status"`
	Files   map[string]FileProgress `json:"files"`
	Overall OverallProgress         `json:"overall"`
	Error   string                  `json:"error,omitempty"`
}

type JobStatusFetcher interface {
	UploadStatus(ctx context.Context, jobID string) (*JobSnapshot, error)
}

// UploadTracker polls one ingestion job on a fixed interval and keeps a
// wholesale-replaced snapshot of it. Poll failures are logged and the next
// scheduled poll still fires; only the job's own status terminates the
// tracker. After Stop or a terminal status, no further poll is issued.
type UploadTracker struct {
	fetcher  JobStatusFetcher
	jobID    string
	interval time.Duration
	logger   *Logger

	onUpdate   func(JobSnapshot)
	onComplete func(JobSnapshot)

	mu       sync.Mutex
	snapshot JobSnapshot
	started  bool
	finished bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewUploadTracker(fetcher JobStatusFetcher, jobID string, interval time.Duration, logger *Logger) *UploadTracker {
	return &UploadTracker{
		fetcher:  fetcher,
		jobID:    jobID,
		interval: interval,
		logger:   logger,
		snapshot: JobSnapshot{JobID: jobID, Status: JobPending},
	}
}

// OnUpdate registers a callback for every fresh snapshot. Set before Start.
func (t *UploadTracker) OnUpdate(fn func(JobSnapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpdate = fn
}

// OnComplete registers a callback fired exactly once, when the job reaches
// a terminal status. Set before Start.
func (t *UploadTracker) OnComplete(fn func(JobSnapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onComplete = fn
}

func (t *UploadTracker) JobID() string { return t.jobID }

func (t *UploadTracker) Snapshot() JobSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyJobSnapshot(t.snapshot)
}

// Start begins polling. Starting an already started or finished tracker is
// a no-op: a terminated job is never polled again.
func (t *UploadTracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.started || t.finished {
		t.mu.Unlock()
		return
	}
	t.started = true
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	t.mu.Unlock()

	go t.loop(ctx)
}

func (t *UploadTracker) loop(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	if t.poll(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.poll(ctx) {
				return
			}
		}
	}
}

// poll fetches one snapshot; the return value reports whether the job
// reached a terminal status.
func (t *UploadTracker) poll(ctx context.Context) bool {
	snap, err := t.fetcher.UploadStatus(ctx, t.jobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		// Transient poll failure; the job itself may still be running.
		t.logger.Warn("job status poll failed", map[string]interface{}{
			"job_id": t.jobID,
			"error":  err.Error(),
		})
		return false
	}

	t.mu.Lock()
	t.snapshot = copyJobSnapshot(*snap)
	onUpdate := t.onUpdate
	onComplete := t.onComplete
	terminal := snap.Status.Terminal()
	if terminal {
		t.finished = true
	}
	t.mu.Unlock()

	if onUpdate != nil {
		onUpdate(copyJobSnapshot(*snap))
	}
	if terminal {
		t.logger.Info("ingestion job finished", map[string]interface{}{
			"job_id": t.jobID,
			"status": string(snap.Status),
		})
		if onComplete != nil {
			onComplete(copyJobSnapshot(*snap))
		}
	}
	return terminal
}

// Stop cancels polling and waits for the loop to exit; no poll fires after
// it returns. Safe to call more than once, or on a tracker that finished on
// its own.
func (t *UploadTracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func copyJobSnapshot(snap JobSnapshot) JobSnapshot {
	out := snap
	if snap.Files != nil {
		out.Files = make(map[string]FileProgress, len(snap.Files))
		for name, fp := range snap.Files {
			out.Files[name] = fp
		}
	}
	return out
}

type UploadFileStatus string

const (
	FilePending    UploadFileStatus = "pending"
	FileUploading  UploadFileStatus = "uploading"
	FileProcessing UploadFileStatus = "processing"
	FileCompleted  UploadFileStatus = "completed"
	FileError      UploadFileStatus = "error"
)

func (s UploadFileStatus) Terminal() bool {
	return s == FileCompleted || s == FileError
}

// UploadFile is one selected file in a submission. Status moves forward
// only; once completed or errored the record is immutable.
type UploadFile struct {
	Path     string
	Name     string
	ID       string
	Status   UploadFileStatus
	Progress float64
	Error    string
}

// UploadBatch holds the client-side per-file view of one submission,
// reconciled from polled job snapshots by filename.
type UploadBatch struct {
	mu    sync.Mutex
	files []UploadFile
}

// NewUploadBatch registers the selected files. Non-PDF selections are
// marked as errors immediately and excluded from submission.
func NewUploadBatch(paths []string) *UploadBatch {
	b := &UploadBatch{}
	for _, path := range paths {
		f := UploadFile{
			Path:   path,
			Name:   filepath.Base(path),
			ID:     uuid.NewString(),
			Status: FilePending,
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			f.Status = FileError
			f.Error = "only PDF files are supported"
		}
		b.files = append(b.files, f)
	}
	return b
}

// PDFPaths returns the paths eligible for submission.
func (b *UploadBatch) PDFPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var paths []string
	for _, f := range b.files {
		if f.Status != FileError {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// MarkUploading flips every pending file to uploading, at submission time.
func (b *UploadBatch) MarkUploading() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.files {
		if b.files[i].Status == FilePending {
			b.files[i].Status = FileUploading
		}
	}
}

// Fail marks every non-terminal file as errored, when the submission itself
// failed.
func (b *UploadBatch) Fail(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.files {
		if !b.files[i].Status.Terminal() {
			b.files[i].Status = FileError
			b.files[i].Error = reason
		}
	}
}

// Complete marks every non-terminal file as done, for synchronous upload
// results that bypass job tracking.
func (b *UploadBatch) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.files {
		if !b.files[i].Status.Terminal() {
			b.files[i].Status = FileCompleted
			b.files[i].Progress = 100
		}
	}
}

// ApplySnapshot maps the server's per-file statuses onto the batch. Files
// already in a terminal state are left untouched.
func (b *UploadBatch) ApplySnapshot(snap JobSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.files {
		if b.files[i].Status.Terminal() {
			continue
		}
		fp, ok := snap.Files[b.files[i].Name]
		if !ok {
			continue
		}
		switch fp.Status {
		case "completed":
			b.files[i].Status = FileCompleted
			b.files[i].Progress = 100
		case "error", "failed":
			b.files[i].Status = FileError
			b.files[i].Error = fp.Error
		default:
			b.files[i].Status = FileProcessing
			b.files[i].Progress = fp.Percent
		}
	}
}

func (b *UploadBatch) Files() []UploadFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]UploadFile, len(b.files))
	copy(out, b.files)
	return out
}

func (b *UploadBatch) CompletedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, f := range b.files {
		if f.Status == FileCompleted {
			n++
		}
	}
	return n
}
