package report2pdf

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Service drives conversion jobs through the full pipeline: preprocess,
// document analysis, layout computation, and the render strategy chain.
// A Service is safe for concurrent use.
type Service struct {
	cfg        serviceConfig
	pre        *Preprocessor
	strategies []RenderStrategy
	store      *Store
	supervisor *supervisor
	logger     *zap.Logger
}

// New creates a conversion service backed by the given job store.
// Without options, jobs get the default timeout, artifacts go to the
// system temp directory, and the full strategy chain is used: browser,
// library, structural, plain text.
func New(store *Store, opts ...Option) *Service {
	s := &Service{
		cfg: serviceConfig{
			timeout:       defaultJobTimeout,
			workDir:       os.TempDir(),
			sizeThreshold: sizeOptimizeThreshold,
		},
		store:  store,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.strategies == nil {
		s.strategies = []RenderStrategy{
			NewBrowserStrategy(),
			NewLibraryStrategy(),
			NewStructuralStrategy(),
			NewPlainTextStrategy(),
		}
	}

	s.pre = &Preprocessor{SizeThreshold: s.cfg.sizeThreshold}
	s.supervisor = newSupervisor(store, s.cfg.workDir, s.logger)
	return s
}

// Submit registers a new conversion job and returns it in the pending
// state. The job is persisted before Submit returns.
func (s *Service) Submit(sourceName, content string, cfg *RenderConfig) (*ConversionJob, error) {
	job, err := s.store.Create(sourceName, content, cfg)
	if err != nil {
		return nil, fmt.Errorf("submitting job: %w", err)
	}
	s.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("source", sourceName),
		zap.Int("size", len(content)))
	return job, nil
}

// ConvertJob runs a pending job to a terminal state and returns the final
// job record. The returned error describes pipeline failures; a job that
// was raced to failed by its timeout returns the failed record with a nil
// error, since that outcome is already recorded on the job.
func (s *Service) ConvertJob(ctx context.Context, jobID string) (*ConversionJob, error) {
	job, err := s.store.Transition(jobID, StatusProcessing, "", "")
	if err != nil {
		return nil, fmt.Errorf("starting job %s: %w", jobID, err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()

	s.supervisor.Arm(jobID, s.cfg.timeout, cancel)
	defer s.supervisor.Disarm(jobID)

	artifact, err := s.render(jobCtx, job)
	if err != nil {
		return s.failJob(jobID, err)
	}

	final, err := s.store.Transition(jobID, StatusCompleted, artifact.Path, "")
	if err != nil {
		// Lost the race to the timeout supervisor: its verdict stands and
		// this attempt's artifact must not outlive the failed job.
		if errors.Is(err, ErrTerminalState) {
			_ = removeJobArtifacts(s.cfg.workDir, jobID)
			return s.store.Get(jobID)
		}
		return nil, fmt.Errorf("completing job %s: %w", jobID, err)
	}

	s.logger.Info("job completed",
		zap.String("job_id", jobID),
		zap.String("strategy", artifact.Strategy),
		zap.String("artifact", artifact.Path))
	return final, nil
}

// render runs the content pipeline for one job.
func (s *Service) render(ctx context.Context, job *ConversionJob) (*Artifact, error) {
	prepared, warnings := s.pre.Prepare(job.Content)
	for _, w := range warnings {
		s.logger.Warn("preprocess warning",
			zap.String("job_id", job.ID),
			zap.String("code", w.Code),
			zap.String("detail", w.Message))
	}

	doc, err := ParseDocument(prepared)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	cfg := job.Config.resolved()
	directives := ComputeDirectives(doc, cfg)
	tagged := tagTables(prepared)
	styled := injectCSS(tagged, buildPrintCSS(cfg)+buildLayoutCSS(directives))

	in := &RenderInput{
		JobID:      job.ID,
		HTML:       styled,
		Document:   doc,
		Directives: directives,
		Config:     cfg,
		WorkDir:    s.cfg.workDir,
	}
	return s.renderWithFallback(ctx, in)
}

// failJob records a pipeline failure, tolerating a lost race against the
// timeout supervisor, and cleans up whatever the attempts left behind.
func (s *Service) failJob(jobID string, cause error) (*ConversionJob, error) {
	final, err := s.store.Transition(jobID, StatusFailed, "", userMessage(cause))
	if err != nil {
		if errors.Is(err, ErrTerminalState) {
			_ = removeJobArtifacts(s.cfg.workDir, jobID)
			final, getErr := s.store.Get(jobID)
			if getErr != nil {
				return nil, getErr
			}
			return final, nil
		}
		return nil, fmt.Errorf("failing job %s: %w", jobID, err)
	}

	if cleanupErr := removeJobArtifacts(s.cfg.workDir, jobID); cleanupErr != nil {
		s.logger.Error("artifact cleanup failed",
			zap.String("job_id", jobID), zap.Error(cleanupErr))
	}

	s.logger.Warn("job failed",
		zap.String("job_id", jobID),
		zap.Error(cause))
	return final, cause
}

// Convert is the one-shot form: submit a document and run it to a terminal
// state in a single call.
func (s *Service) Convert(ctx context.Context, sourceName, content string, cfg *RenderConfig) (*ConversionJob, error) {
	job, err := s.Submit(sourceName, content, cfg)
	if err != nil {
		return nil, err
	}
	return s.ConvertJob(ctx, job.ID)
}

// SweepOrphans fails every job left non-terminal by a previous interrupted
// run. Call once at startup, before accepting new work. Returns the number
// of jobs swept.
func (s *Service) SweepOrphans() int {
	return s.supervisor.SweepOrphans()
}

// Job returns the current record for a job.
func (s *Service) Job(id string) (*ConversionJob, error) {
	return s.store.Get(id)
}

// Close releases service resources. Jobs already running are not
// interrupted; their contexts govern their shutdown.
func (s *Service) Close() error {
	return s.logger.Sync()
}
