package report2pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want JobStatus) *ConversionJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(jobID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.Get(jobID)
	t.Fatalf("job %s stuck in %v, want %v", jobID, job.Status, want)
	return nil
}

func TestSupervisorTimeoutFailsJob(t *testing.T) {
	store, _ := newTestStore(t)
	workDir := t.TempDir()
	sv := newSupervisor(store, workDir, zap.NewNop())

	job, _ := store.Create("x.html", storeTestContent, nil)
	store.Transition(job.ID, StatusProcessing, "", "")

	// partial artifact that must not survive the timeout
	partial := filepath.Join(workDir, "report2pdf-"+job.ID+"-browser.pdf")
	if err := os.WriteFile(partial, []byte("%PDF-partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sv.Arm(job.ID, 20*time.Millisecond, cancel)

	failed := waitForStatus(t, store, job.ID, StatusFailed)
	if failed.ErrorMessage != msgTimedOut {
		t.Errorf("ErrorMessage = %q, want %q", failed.ErrorMessage, msgTimedOut)
	}
	if failed.ArtifactPath != "" {
		t.Errorf("ArtifactPath = %q on a timed-out job", failed.ArtifactPath)
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("job context not cancelled on timeout")
	}

	// artifact cleanup may lag the transition slightly
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := os.Stat(partial); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Error("partial artifact survived the timeout")
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSupervisorDisarmStopsTimer(t *testing.T) {
	store, _ := newTestStore(t)
	sv := newSupervisor(store, t.TempDir(), zap.NewNop())

	job, _ := store.Create("x.html", storeTestContent, nil)
	store.Transition(job.ID, StatusProcessing, "", "")

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	sv.Arm(job.ID, 30*time.Millisecond, cancel)
	sv.Disarm(job.ID)

	time.Sleep(100 * time.Millisecond)
	got, _ := store.Get(job.ID)
	if got.Status != StatusProcessing {
		t.Errorf("disarmed job transitioned to %v", got.Status)
	}

	// disarm is idempotent, including for never-armed jobs
	sv.Disarm(job.ID)
	sv.Disarm("never-armed")
}

func TestSupervisorTimeoutLosesToCompletion(t *testing.T) {
	store, _ := newTestStore(t)
	sv := newSupervisor(store, t.TempDir(), zap.NewNop())

	job, _ := store.Create("x.html", storeTestContent, nil)
	store.Transition(job.ID, StatusProcessing, "", "")
	store.Transition(job.ID, StatusCompleted, "/tmp/out.pdf", "")

	// fires after the job already completed; the completion must stand
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	sv.Arm(job.ID, time.Millisecond, cancel)

	time.Sleep(50 * time.Millisecond)
	got, _ := store.Get(job.ID)
	if got.Status != StatusCompleted || got.ArtifactPath != "/tmp/out.pdf" {
		t.Errorf("timeout overwrote a completed job: %+v", got)
	}
}

func TestSweepOrphans(t *testing.T) {
	store, _ := newTestStore(t)
	workDir := t.TempDir()
	sv := newSupervisor(store, workDir, zap.NewNop())

	pending, _ := store.Create("a.html", storeTestContent, nil)
	processing, _ := store.Create("b.html", storeTestContent, nil)
	store.Transition(processing.ID, StatusProcessing, "", "")
	done, _ := store.Create("c.html", storeTestContent, nil)
	store.Transition(done.ID, StatusProcessing, "", "")
	store.Transition(done.ID, StatusCompleted, "/tmp/c.pdf", "")

	leftover := filepath.Join(workDir, "report2pdf-"+processing.ID+"-library.pdf")
	if err := os.WriteFile(leftover, []byte("%PDF-partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	if swept := sv.SweepOrphans(); swept != 2 {
		t.Errorf("SweepOrphans() = %d, want 2", swept)
	}

	for _, id := range []string{pending.ID, processing.ID} {
		job, _ := store.Get(id)
		if job.Status != StatusFailed {
			t.Errorf("orphan %s status = %v, want failed", id, job.Status)
		}
		if job.ErrorMessage != msgInterrupted {
			t.Errorf("orphan %s message = %q, want %q", id, job.ErrorMessage, msgInterrupted)
		}
	}

	finished, _ := store.Get(done.ID)
	if finished.Status != StatusCompleted {
		t.Error("sweep touched a completed job")
	}

	if _, err := os.Stat(leftover); !os.IsNotExist(err) {
		t.Error("sweep left a partial artifact behind")
	}

	// a second sweep finds nothing
	if swept := sv.SweepOrphans(); swept != 0 {
		t.Errorf("second SweepOrphans() = %d, want 0", swept)
	}
}
