package report2pdf

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const storeTestContent = "<html><body><p>x</p></body></html>"

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func TestStoreCreate(t *testing.T) {
	store, dir := newTestStore(t)

	job, err := store.Create("report.html", storeTestContent, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if job.ID == "" {
		t.Error("Create() returned empty job ID")
	}
	if job.Status != StatusPending {
		t.Errorf("Status = %v, want pending", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	// persisted in the embedded database under the data dir
	if _, err := os.Stat(filepath.Join(dir, storeFileName)); err != nil {
		t.Errorf("job database not created: %v", err)
	}
}

func TestStoreCreateRejectsEmptyContent(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Create("x.html", "   ", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Create() error = %v, want ErrEmptyDocument", err)
	}
}

func TestStoreCreateValidatesConfig(t *testing.T) {
	store, _ := newTestStore(t)
	bad := &RenderConfig{PageSize: "tabloid", Orientation: OrientationPortrait, Margin: DefaultMargin}
	if _, err := store.Create("x.html", storeTestContent, bad); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("Create() error = %v, want ErrInvalidPageSize", err)
	}
}

func TestStoreTransitionLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	job, _ := store.Create("x.html", storeTestContent, nil)

	processing, err := store.Transition(job.ID, StatusProcessing, "", "")
	if err != nil {
		t.Fatalf("pending->processing error = %v", err)
	}
	if processing.Status != StatusProcessing {
		t.Errorf("Status = %v, want processing", processing.Status)
	}
	if !processing.CompletedAt.IsZero() {
		t.Error("CompletedAt set on a non-terminal transition")
	}

	done, err := store.Transition(job.ID, StatusCompleted, "/tmp/a.pdf", "")
	if err != nil {
		t.Fatalf("processing->completed error = %v", err)
	}
	if done.ArtifactPath != "/tmp/a.pdf" {
		t.Errorf("ArtifactPath = %q", done.ArtifactPath)
	}
	if done.CompletedAt.IsZero() {
		t.Error("CompletedAt not set on terminal transition")
	}
}

func TestStoreTransitionFailedClearsArtifactPath(t *testing.T) {
	store, _ := newTestStore(t)
	job, _ := store.Create("x.html", storeTestContent, nil)
	store.Transition(job.ID, StatusProcessing, "", "")

	// a failing caller may still hold the path of a partial artifact; it
	// must never be recorded on a non-completed job
	failed, err := store.Transition(job.ID, StatusFailed, "/tmp/partial.pdf", "boom")
	if err != nil {
		t.Fatalf("processing->failed error = %v", err)
	}
	if failed.ArtifactPath != "" {
		t.Errorf("failed job ArtifactPath = %q, want empty", failed.ArtifactPath)
	}

	got, _ := store.Get(job.ID)
	if got.ArtifactPath != "" {
		t.Errorf("persisted failed job ArtifactPath = %q, want empty", got.ArtifactPath)
	}
}

func TestStoreTransitionInvalidEdges(t *testing.T) {
	store, _ := newTestStore(t)
	job, _ := store.Create("x.html", storeTestContent, nil)

	// pending cannot jump straight to completed
	if _, err := store.Transition(job.ID, StatusCompleted, "", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending->completed error = %v, want ErrInvalidTransition", err)
	}

	if _, err := store.Transition("no-such-id", StatusProcessing, "", ""); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("unknown job error = %v, want ErrJobNotFound", err)
	}
}

func TestStoreTerminalImmutable(t *testing.T) {
	store, _ := newTestStore(t)
	job, _ := store.Create("x.html", storeTestContent, nil)
	store.Transition(job.ID, StatusProcessing, "", "")
	store.Transition(job.ID, StatusFailed, "", "boom")

	for _, to := range []JobStatus{StatusProcessing, StatusCompleted, StatusFailed} {
		if _, err := store.Transition(job.ID, to, "", ""); !errors.Is(err, ErrTerminalState) {
			t.Errorf("failed->%s error = %v, want ErrTerminalState", to, err)
		}
	}

	got, _ := store.Get(job.ID)
	if got.Status != StatusFailed || got.ErrorMessage != "boom" {
		t.Errorf("terminal record mutated: %+v", got)
	}
}

func TestStoreTransitionSingleWinner(t *testing.T) {
	store, _ := newTestStore(t)
	job, _ := store.Create("x.html", storeTestContent, nil)
	store.Transition(job.ID, StatusProcessing, "", "")

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan JobStatus, racers)

	for i := 0; i < racers; i++ {
		to := StatusCompleted
		if i%2 == 0 {
			to = StatusFailed
		}
		wg.Add(1)
		go func(to JobStatus) {
			defer wg.Done()
			if _, err := store.Transition(job.ID, to, "", ""); err == nil {
				wins <- to
			} else if !errors.Is(err, ErrTerminalState) {
				t.Errorf("loser got %v, want ErrTerminalState", err)
			}
		}(to)
	}
	wg.Wait()
	close(wins)

	var winners []JobStatus
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("got %d winning transitions, want exactly 1", len(winners))
	}

	got, _ := store.Get(job.ID)
	if got.Status != winners[0] {
		t.Errorf("final status %v does not match winner %v", got.Status, winners[0])
	}
}

func TestStoreListRecent(t *testing.T) {
	store, _ := newTestStore(t)
	var ids []string
	for i := 0; i < 3; i++ {
		job, _ := store.Create("x.html", storeTestContent, nil)
		ids = append(ids, job.ID)
		time.Sleep(2 * time.Millisecond)
	}

	recent := store.ListRecent(2)
	if len(recent) != 2 {
		t.Fatalf("got %d jobs, want 2", len(recent))
	}
	if recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Error("ListRecent not ordered newest first")
	}

	if all := store.ListRecent(0); len(all) != 3 {
		t.Errorf("ListRecent(0) = %d jobs, want all 3", len(all))
	}
}

func TestStoreNonTerminal(t *testing.T) {
	store, _ := newTestStore(t)
	pending, _ := store.Create("a.html", storeTestContent, nil)
	processing, _ := store.Create("b.html", storeTestContent, nil)
	store.Transition(processing.ID, StatusProcessing, "", "")
	done, _ := store.Create("c.html", storeTestContent, nil)
	store.Transition(done.ID, StatusProcessing, "", "")
	store.Transition(done.ID, StatusCompleted, "/tmp/x.pdf", "")

	open := store.NonTerminal()
	if len(open) != 2 {
		t.Fatalf("NonTerminal() = %v, want 2 IDs", open)
	}
	for _, id := range open {
		if id != pending.ID && id != processing.ID {
			t.Errorf("unexpected non-terminal ID %s", id)
		}
	}
}

func TestStoreReload(t *testing.T) {
	store, dir := newTestStore(t)
	job, _ := store.Create("x.html", storeTestContent, nil)
	store.Transition(job.ID, StatusProcessing, "", "")
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() reload error = %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(job.ID)
	if err != nil {
		t.Fatalf("Get() after reload error = %v", err)
	}
	if got.Status != StatusProcessing || got.Content != storeTestContent {
		t.Errorf("reloaded job = %+v", got)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t)
	job, _ := store.Create("x.html", storeTestContent, nil)

	got, _ := store.Get(job.ID)
	got.Status = StatusCompleted

	again, _ := store.Get(job.ID)
	if again.Status != StatusPending {
		t.Error("mutating a Get() result leaked into the store")
	}
}
