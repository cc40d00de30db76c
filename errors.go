package report2pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for library operations.
var (
	ErrEmptyDocument = errors.New("document content cannot be empty")
	ErrNoStrategies  = errors.New("no render strategies configured")

	// Job store errors.
	ErrJobNotFound       = errors.New("job not found")
	ErrTerminalState     = errors.New("job already in terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")

	// Render config validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")

	// Strategy errors.
	ErrBrowserUnavailable = errors.New("no usable browser executable found")
	ErrArtifactInvalid    = errors.New("produced artifact is empty or malformed")
)

// Warning is a non-fatal observation from document preprocessing.
// Warnings are logged and never block rendering.
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}

// StrategyError records the failure of a single render strategy.
// It is recoverable: the chain falls through to the next strategy.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ChainExhaustedError aggregates the failures of every strategy in the
// chain. It is fatal for the job.
type ChainExhaustedError struct {
	Attempts []*StrategyError
}

func (e *ChainExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return "all render strategies failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual strategy failures to errors.Is/As.
func (e *ChainExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a
	}
	return errs
}

// User-facing failure messages. Raw backend diagnostics stay in the log;
// these carry just enough information to retry.
const (
	msgTimedOut    = "conversion timed out; try a smaller file"
	msgInterrupted = "conversion interrupted by a restart; please resubmit"
	msgExhausted   = "rendering backend unavailable in this environment; the document could not be converted"
)

// userMessage synthesizes a single human-readable message from a pipeline
// failure. The terminal failed state always carries this, never raw backend
// output.
func userMessage(err error) string {
	var chain *ChainExhaustedError
	switch {
	case errors.Is(err, ErrEmptyDocument):
		return "the uploaded document is empty"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return msgTimedOut
	case errors.As(err, &chain):
		return msgExhausted
	default:
		return "conversion failed; try a smaller or simpler file"
	}
}
