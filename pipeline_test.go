package report2pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConvertJobSuccess(t *testing.T) {
	winner := &fakeStrategy{name: "winner"}
	svc, store := newTestService(t, WithStrategies(winner))

	job, err := svc.Submit("statement.html", statementHTML, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	final, err := svc.ConvertJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ConvertJob() error = %v", err)
	}
	if final.Status != StatusCompleted {
		t.Errorf("Status = %v, want completed", final.Status)
	}
	if final.ArtifactPath == "" {
		t.Error("completed job has no artifact path")
	}
	if final.ErrorMessage != "" {
		t.Errorf("completed job has error message %q", final.ErrorMessage)
	}

	stored, _ := store.Get(job.ID)
	if stored.Status != StatusCompleted {
		t.Errorf("stored status = %v, want completed", stored.Status)
	}
}

func TestConvertJobFallsThroughChain(t *testing.T) {
	first := &fakeStrategy{name: "browser", err: errors.New("no executable")}
	second := &fakeStrategy{name: "library", err: errors.New("layout failed")}
	third := &fakeStrategy{name: "structural"}
	svc, _ := newTestService(t, WithStrategies(first, second, third))

	job, _ := svc.Submit("r.html", statementHTML, nil)
	final, err := svc.ConvertJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ConvertJob() error = %v", err)
	}
	if final.Status != StatusCompleted {
		t.Errorf("Status = %v, want completed via the third strategy", final.Status)
	}
	if !strings.Contains(final.ArtifactPath, "structural") {
		t.Errorf("ArtifactPath = %q, want structural artifact", final.ArtifactPath)
	}
}

func TestConvertJobAllStrategiesFail(t *testing.T) {
	first := &fakeStrategy{name: "browser", err: errors.New("no executable")}
	second := &fakeStrategy{name: "library", err: errors.New("bad layout")}
	svc, _ := newTestService(t, WithStrategies(first, second))

	job, _ := svc.Submit("r.html", statementHTML, nil)
	final, err := svc.ConvertJob(context.Background(), job.ID)

	var chain *ChainExhaustedError
	if !errors.As(err, &chain) {
		t.Fatalf("ConvertJob() error = %v, want ChainExhaustedError", err)
	}
	if final.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", final.Status)
	}
	if final.ErrorMessage != msgExhausted {
		t.Errorf("ErrorMessage = %q, want the user-facing exhaustion message", final.ErrorMessage)
	}
	if final.ArtifactPath != "" {
		t.Error("failed job carries an artifact path")
	}
}

func TestConvertJobTimeout(t *testing.T) {
	blocker := &fakeStrategy{name: "blocker", block: true}
	svc, _ := newTestService(t,
		WithStrategies(blocker),
		WithTimeout(50*time.Millisecond))

	job, _ := svc.Submit("r.html", statementHTML, nil)
	final, err := svc.ConvertJob(context.Background(), job.ID)
	if err != nil && final == nil {
		t.Fatalf("ConvertJob() error = %v with no job record", err)
	}
	if final.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", final.Status)
	}
	if final.ErrorMessage != msgTimedOut {
		t.Errorf("ErrorMessage = %q, want %q", final.ErrorMessage, msgTimedOut)
	}
}

func TestConvertJobFailureCleansArtifacts(t *testing.T) {
	workDir := t.TempDir()
	leaky := &fakeStrategy{name: "leaky", err: errors.New("fails after writing")}
	svc, _ := newTestService(t, WithStrategies(leaky), WithWorkDir(workDir))

	job, _ := svc.Submit("r.html", statementHTML, nil)

	// simulate a partial write from the failing attempt
	partial := filepath.Join(workDir, "report2pdf-"+job.ID+"-leaky.pdf")
	if err := os.WriteFile(partial, []byte("%PDF-partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ConvertJob(context.Background(), job.ID); err == nil {
		t.Fatal("ConvertJob() succeeded, want failure")
	}
	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Error("partial artifact survived the job failure")
	}
}

func TestConvertJobRequiresPending(t *testing.T) {
	svc, store := newTestService(t, WithStrategies(&fakeStrategy{name: "s"}))
	job, _ := svc.Submit("r.html", statementHTML, nil)
	store.Transition(job.ID, StatusProcessing, "", "")
	store.Transition(job.ID, StatusFailed, "", "x")

	if _, err := svc.ConvertJob(context.Background(), job.ID); !errors.Is(err, ErrTerminalState) {
		t.Errorf("ConvertJob() on terminal job error = %v, want ErrTerminalState", err)
	}
}

func TestConvertEndToEndWithRealFallbacks(t *testing.T) {
	// structural and plain-text need no browser or display
	svc, _ := newTestService(t,
		WithStrategies(NewStructuralStrategy(), NewPlainTextStrategy()))

	final, err := svc.Convert(context.Background(), "statement.html", statementHTML, &RenderConfig{
		PageSize:      PageSizeA4,
		Orientation:   OrientationPortrait,
		Margin:        DefaultMargin,
		RepeatHeaders: true,
		KeepRowGroups: true,
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("Status = %v, want completed", final.Status)
	}

	data, err := os.ReadFile(final.ArtifactPath)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Error("structural artifact is not a PDF")
	}
}

func TestConvertFiveTableReport(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><head><title>Annual Report</title></head><body><h1>Annual Report</h1>")
	for i := 0; i < 5; i++ {
		sb.WriteString("<h2>Section</h2><table><tr><th>Account</th><th>Debit</th><th>Credit</th></tr>")
		sb.WriteString("<tr><td>4411</td><td>10.00</td><td>0.00</td></tr>")
		sb.WriteString("<tr><td>Total</td><td>10.00</td><td>0.00</td></tr></table>")
	}
	sb.WriteString("</body></html>")

	svc, _ := newTestService(t, WithStrategies(NewStructuralStrategy()))
	final, err := svc.Convert(context.Background(), "annual.html", sb.String(), nil)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("Status = %v, want completed", final.Status)
	}
	if err := validatePDFArtifact(final.ArtifactPath); err != nil {
		t.Errorf("artifact invalid: %v", err)
	}
}

func TestConvertOversizeDocumentRoundTrip(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><h1>Big Ledger</h1><table><tr><th>N</th><th>V</th></tr>")
	for i := 0; i < 4000; i++ {
		sb.WriteString(`<!-- filler --><tr style="color: #333"><td>row</td><td>1.00</td></tr>
`)
	}
	sb.WriteString("<tr><td>Total</td><td>4000.00</td></tr></table></body></html>")
	content := sb.String()

	svc, _ := newTestService(t,
		WithStrategies(NewStructuralStrategy()),
		WithSizeThreshold(64*1024))

	if len(content) <= 64*1024 {
		t.Fatalf("fixture only %d bytes, below the threshold under test", len(content))
	}

	final, err := svc.Convert(context.Background(), "big.html", content, nil)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("Status = %v, want completed", final.Status)
	}
}

func TestSubmitRejectsEmptyContent(t *testing.T) {
	svc, _ := newTestService(t, WithStrategies(&fakeStrategy{name: "s"}))
	if _, err := svc.Submit("empty.html", "", nil); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Submit() error = %v, want ErrEmptyDocument", err)
	}
}

func TestServiceSweepOrphans(t *testing.T) {
	store, _ := newTestStore(t)
	orphan, _ := store.Create("old.html", storeTestContent, nil)
	store.Transition(orphan.ID, StatusProcessing, "", "")

	svc := New(store, WithWorkDir(t.TempDir()), WithStrategies(&fakeStrategy{name: "s"}))
	if swept := svc.SweepOrphans(); swept != 1 {
		t.Errorf("SweepOrphans() = %d, want 1", swept)
	}
	got, _ := svc.Job(orphan.ID)
	if got.Status != StatusFailed || got.ErrorMessage != msgInterrupted {
		t.Errorf("orphan after sweep = %+v", got)
	}
}
