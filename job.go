package report2pdf

import "time"

// JobStatus is the lifecycle state of a conversion job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final. Terminal statuses are
// immutable once reached.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ConversionJob tracks one request to convert a document into a rendered
// artifact. Content and Config are immutable once the job is created; only
// Store.Transition mutates the status fields.
//
// Invariants: CompletedAt is set if and only if Status is terminal, and
// ArtifactPath is set only when Status is completed.
type ConversionJob struct {
	ID           string        `json:"id"`
	SourceName   string        `json:"source_name"`
	Content      string        `json:"content"`
	Config       *RenderConfig `json:"config"`
	Status       JobStatus     `json:"status"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  time.Time     `json:"completed_at,omitempty"`
}
