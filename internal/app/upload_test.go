package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedFetcher serves a fixed sequence of snapshots (or errors), then
// repeats the last entry.
type scriptedFetcher struct {
	mu     sync.Mutex
	steps  []func() (*JobSnapshot, error)
	polls  atomic.Int32
	cursor int
}

func (f *scriptedFetcher) UploadStatus(ctx context.Context, jobID string) (*JobSnapshot, error) {
	f.polls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	step := f.steps[f.cursor]
	if f.cursor < len(f.steps)-1 {
		f.cursor++
	}
	return step()
}

func snapshotStep(status JobStatus, percent float64) func() (*JobSnapshot, error) {
	return func() (*JobSnapshot, error) {
		return &JobSnapshot{
			JobID:   "job-1",
			Status:  status,
			Overall: OverallProgress{Percent: percent},
			Files: map[string]FileProgress{
				"a.pdf": {Percent: percent, Status: fileStatusFor(status)},
			},
		}, nil
	}
}

func fileStatusFor(status JobStatus) string {
	if status == JobCompleted {
		return "completed"
	}
	return "processing"
}

func errorStep(msg string) func() (*JobSnapshot, error) {
	return func() (*JobSnapshot, error) { return nil, errors.New(msg) }
}

func TestUploadTracker_PollsToCompletion(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []func() (*JobSnapshot, error){
		snapshotStep(JobPending, 0),
		snapshotStep(JobRunning, 40),
		snapshotStep(JobRunning, 75),
		snapshotStep(JobCompleted, 100),
	}}

	tracker := NewUploadTracker(fetcher, "job-1", 10*time.Millisecond, testLogger())

	var updates []JobSnapshot
	var mu sync.Mutex
	var completions atomic.Int32
	done := make(chan struct{})
	tracker.OnUpdate(func(snap JobSnapshot) {
		mu.Lock()
		updates = append(updates, snap)
		mu.Unlock()
	})
	tracker.OnComplete(func(snap JobSnapshot) {
		completions.Add(1)
		close(done)
	})

	tracker.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tracker never completed")
	}

	mu.Lock()
	got := make([]float64, 0, len(updates))
	for _, u := range updates {
		got = append(got, u.Overall.Percent)
	}
	mu.Unlock()

	want := []float64{0, 40, 75, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %d updates, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("update %d: expected %.0f%%, got %.0f%%", i, want[i], got[i])
		}
	}

	if completions.Load() != 1 {
		t.Fatalf("completion callback fired %d times", completions.Load())
	}

	settled := fetcher.polls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.polls.Load(); got != settled {
		t.Fatalf("poll issued after terminal status: %d -> %d", settled, got)
	}
}

func TestUploadTracker_PollFailureDoesNotStopInterval(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []func() (*JobSnapshot, error){
		snapshotStep(JobRunning, 10),
		errorStep("connection reset"),
		errorStep("connection reset"),
		snapshotStep(JobCompleted, 100),
	}}

	tracker := NewUploadTracker(fetcher, "job-1", 10*time.Millisecond, testLogger())
	done := make(chan struct{})
	tracker.OnComplete(func(JobSnapshot) { close(done) })

	tracker.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("transient poll failures must not stop polling")
	}

	if snap := tracker.Snapshot(); snap.Status != JobCompleted {
		t.Fatalf("expected completed snapshot, got %+v", snap)
	}
}

func TestUploadTracker_FailedJobIsTerminal(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []func() (*JobSnapshot, error){
		func() (*JobSnapshot, error) {
			return &JobSnapshot{JobID: "job-1", Status: JobFailed, Error: "corrupt pdf"}, nil
		},
	}}

	tracker := NewUploadTracker(fetcher, "job-1", 10*time.Millisecond, testLogger())
	done := make(chan struct{})
	var final JobSnapshot
	tracker.OnComplete(func(snap JobSnapshot) {
		final = snap
		close(done)
	})

	tracker.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("failed job must terminate the tracker")
	}
	if final.Error != "corrupt pdf" {
		t.Fatalf("job error not carried: %+v", final)
	}
}

func TestUploadTracker_NoPollAfterStop(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []func() (*JobSnapshot, error){
		snapshotStep(JobRunning, 50),
	}}

	tracker := NewUploadTracker(fetcher, "job-1", 10*time.Millisecond, testLogger())
	tracker.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	tracker.Stop()

	settled := fetcher.polls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.polls.Load(); got != settled {
		t.Fatalf("poll fired after teardown: %d -> %d", settled, got)
	}
}

func TestUploadTracker_StartAfterFinishIsNoop(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []func() (*JobSnapshot, error){
		snapshotStep(JobCompleted, 100),
	}}

	tracker := NewUploadTracker(fetcher, "job-1", 10*time.Millisecond, testLogger())
	done := make(chan struct{})
	tracker.OnComplete(func(JobSnapshot) { close(done) })
	tracker.Start(context.Background())
	<-done

	settled := fetcher.polls.Load()
	tracker.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	if got := fetcher.polls.Load(); got != settled {
		t.Fatalf("restart after terminal status issued polls: %d -> %d", settled, got)
	}
}

func TestUploadBatch_MarksNonPDFAsError(t *testing.T) {
	b := NewUploadBatch([]string{"contract.pdf", "notes.txt"})

	files := b.Files()
	if files[0].Status != FilePending {
		t.Fatalf("pdf should be pending, got %s", files[0].Status)
	}
	if files[1].Status != FileError {
		t.Fatalf("non-pdf should be errored, got %s", files[1].Status)
	}

	paths := b.PDFPaths()
	if len(paths) != 1 || filepath.Base(paths[0]) != "contract.pdf" {
		t.Fatalf("unexpected submission paths: %v", paths)
	}
}

func TestUploadBatch_TerminalFilesAreImmutable(t *testing.T) {
	b := NewUploadBatch([]string{"a.pdf", "b.pdf"})
	b.MarkUploading()

	b.ApplySnapshot(JobSnapshot{Files: map[string]FileProgress{
		"a.pdf": {Status: "completed", Percent: 100},
		"b.pdf": {Status: "processing", Percent: 30},
	}})

	// A later snapshot must not move a.pdf out of its terminal state.
	b.ApplySnapshot(JobSnapshot{Files: map[string]FileProgress{
		"a.pdf": {Status: "processing", Percent: 10},
		"b.pdf": {Status: "error", Error: "unreadable"},
	}})

	files := b.Files()
	if files[0].Status != FileCompleted || files[0].Progress != 100 {
		t.Fatalf("completed file mutated: %+v", files[0])
	}
	if files[1].Status != FileError || files[1].Error != "unreadable" {
		t.Fatalf("expected b.pdf errored: %+v", files[1])
	}

	b.ApplySnapshot(JobSnapshot{Files: map[string]FileProgress{
		"b.pdf": {Status: "processing", Percent: 99},
	}})
	if got := b.Files()[1]; got.Status != FileError {
		t.Fatalf("errored file mutated: %+v", got)
	}
}

func TestUploadBatch_SynchronousCompletion(t *testing.T) {
	b := NewUploadBatch([]string{"a.pdf"})
	b.MarkUploading()
	b.Complete()

	if got := b.Files()[0]; got.Status != FileCompleted || got.Progress != 100 {
		t.Fatalf("unexpected file state: %+v", got)
	}
	if b.CompletedCount() != 1 {
		t.Fatalf("expected 1 completed, got %d", b.CompletedCount())
	}
}
