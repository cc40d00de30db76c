package report2pdf

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Per-strategy time slice bounds. Each attempt gets a slice proportional to
// document size, clamped so one slow strategy cannot starve the chain.
const (
	minStrategySlice = 12 * time.Second
	maxStrategySlice = 45 * time.Second

	// sliceSizeUnit is the document size granting one extra second beyond
	// the minimum slice.
	sliceSizeUnit = 32 * 1024
)

// RenderInput carries everything a strategy needs to produce an artifact.
// Strategies must not mutate the document or the directives.
type RenderInput struct {
	JobID      string
	HTML       string
	Document   *Document
	Directives *LayoutDirective
	Config     *RenderConfig
	WorkDir    string
}

// RenderStrategy is a single rendering approach in the fallback chain.
// Attempt returns the path of the produced artifact, or an error describing
// why this strategy could not render the document. An error from one
// strategy is not a job failure; the chain moves to the next.
type RenderStrategy interface {
	Name() string
	Attempt(ctx context.Context, in *RenderInput) (string, error)
}

// strategySlice computes the per-attempt timeout for a document of the
// given size, leaving enough of the remaining budget for the strategies
// still queued behind this one.
func strategySlice(docSize, remainingStrategies int, budget time.Duration) time.Duration {
	slice := minStrategySlice + time.Duration(docSize/sliceSizeUnit)*time.Second
	if slice > maxStrategySlice {
		slice = maxStrategySlice
	}

	// Reserve a minimum slice for each strategy still waiting its turn.
	if remainingStrategies > 1 {
		reserved := time.Duration(remainingStrategies-1) * minStrategySlice
		if avail := budget - reserved; avail < slice {
			slice = avail
		}
	} else if budget < slice {
		slice = budget
	}

	if slice < minStrategySlice {
		slice = minStrategySlice
	}
	return slice
}

// renderWithFallback walks the strategy chain in order, giving each strategy
// a bounded time slice, and returns the first validated artifact. When every
// strategy fails, the collected attempt errors are returned as a
// ChainExhaustedError so callers can report which approaches were tried.
func (s *Service) renderWithFallback(ctx context.Context, in *RenderInput) (*Artifact, error) {
	if len(s.strategies) == 0 {
		return nil, ErrNoStrategies
	}

	deadline, hasDeadline := ctx.Deadline()
	var attempts []*StrategyError

	for i, strat := range s.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		budget := maxStrategySlice * time.Duration(len(s.strategies)-i)
		if hasDeadline {
			budget = time.Until(deadline)
		}
		slice := strategySlice(len(in.HTML), len(s.strategies)-i, budget)

		attemptCtx, cancel := context.WithTimeout(ctx, slice)
		start := time.Now()
		path, err := strat.Attempt(attemptCtx, in)
		cancel()

		if err != nil {
			s.logger.Warn("render strategy failed",
				zap.String("job_id", in.JobID),
				zap.String("strategy", strat.Name()),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			attempts = append(attempts, &StrategyError{Strategy: strat.Name(), Err: err})
			continue
		}

		s.logger.Info("render strategy succeeded",
			zap.String("job_id", in.JobID),
			zap.String("strategy", strat.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("artifact", path))
		return &Artifact{Path: path, Strategy: strat.Name()}, nil
	}

	// The job's own context expiring mid-chain is a timeout, not exhaustion.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("rendering %s: %w", in.JobID, &ChainExhaustedError{Attempts: attempts})
}
