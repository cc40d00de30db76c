package report2pdf

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// supervisor enforces the wall-clock bound on running jobs and reclaims
// jobs orphaned by a previous interrupted run. It never races the pipeline
// for a terminal state: whichever side transitions first wins, and the
// other side's ErrTerminalState is swallowed.
type supervisor struct {
	store   *Store
	workDir string
	logger  *zap.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	cancels map[string]context.CancelFunc
}

func newSupervisor(store *Store, workDir string, logger *zap.Logger) *supervisor {
	return &supervisor{
		store:   store,
		workDir: workDir,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Arm starts the timeout clock for a job. When the duration elapses before
// Disarm, the job's context is cancelled, the job is marked failed, and its
// artifacts are removed.
func (sv *supervisor) Arm(jobID string, d time.Duration, cancel context.CancelFunc) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	sv.cancels[jobID] = cancel
	sv.timers[jobID] = time.AfterFunc(d, func() { sv.expire(jobID) })
}

// Disarm stops the timeout clock. Idempotent: disarming a job that already
// expired or was never armed is a no-op.
func (sv *supervisor) Disarm(jobID string) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if t, ok := sv.timers[jobID]; ok {
		t.Stop()
		delete(sv.timers, jobID)
	}
	delete(sv.cancels, jobID)
}

func (sv *supervisor) expire(jobID string) {
	sv.mu.Lock()
	cancel := sv.cancels[jobID]
	delete(sv.timers, jobID)
	delete(sv.cancels, jobID)
	sv.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	_, err := sv.store.Transition(jobID, StatusFailed, "", msgTimedOut)
	switch {
	case err == nil:
		sv.logger.Warn("job timed out", zap.String("job_id", jobID))
	case errors.Is(err, ErrTerminalState):
		// The pipeline finished in the window between timer fire and
		// transition; its result stands.
		return
	default:
		sv.logger.Error("timeout transition failed",
			zap.String("job_id", jobID), zap.Error(err))
		return
	}

	if cleanupErr := removeJobArtifacts(sv.workDir, jobID); cleanupErr != nil {
		sv.logger.Error("timeout artifact cleanup failed",
			zap.String("job_id", jobID), zap.Error(cleanupErr))
	}
}

// SweepOrphans fails every job left pending or processing by an earlier
// interrupted run and removes their partial artifacts. Each orphan is
// failed exactly once; jobs already terminal are untouched. Returns the
// number of jobs swept.
func (sv *supervisor) SweepOrphans() int {
	swept := 0
	for _, jobID := range sv.store.NonTerminal() {
		_, err := sv.store.Transition(jobID, StatusFailed, "", msgInterrupted)
		if err != nil {
			if !errors.Is(err, ErrTerminalState) {
				sv.logger.Error("orphan sweep transition failed",
					zap.String("job_id", jobID), zap.Error(err))
			}
			continue
		}
		swept++
		sv.logger.Info("swept orphaned job", zap.String("job_id", jobID))

		if cleanupErr := removeJobArtifacts(sv.workDir, jobID); cleanupErr != nil {
			sv.logger.Error("orphan artifact cleanup failed",
				zap.String("job_id", jobID), zap.Error(cleanupErr))
		}
	}
	return swept
}
