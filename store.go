package report2pdf

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// storeFileName is the database file created under the data directory.
const storeFileName = "jobs.db"

// validTransitions enumerates the allowed lifecycle edges. Terminal states
// have no outgoing edges; a job that completed or failed stays that way.
var validTransitions = map[JobStatus][]JobStatus{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

var storeSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		content TEXT NOT NULL,
		config TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		artifact_path TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS jobs_status ON jobs(status);`,
	`CREATE INDEX IF NOT EXISTS jobs_created_at ON jobs(created_at);`,
}

const jobColumns = "id, source_name, content, config, status, artifact_path, error_message, created_at, completed_at"

// Store persists conversion jobs in an embedded database under the data
// directory, so job state survives a process restart and interrupted jobs
// can be identified on the next start. Safe for concurrent use.
type Store struct {
	mu sync.Mutex // serializes status transitions for the single-winner rule
	db *sql.DB
}

// NewStore opens the job store rooted at dataDir, creating the directory
// and the database schema if needed.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(dataDir, storeFileName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening job database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range storeSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initializing job schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create registers a new pending job for the given source document.
func (s *Store) Create(sourceName, content string, cfg *RenderConfig) (*ConversionJob, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyDocument
	}
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	job := &ConversionJob{
		ID:         uuid.NewString(),
		SourceName: sourceName,
		Content:    content,
		Config:     cfg,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	cfgText := ""
	if cfg != nil {
		data, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("encoding job config: %w", err)
		}
		cfgText = string(data)
	}

	_, err := s.db.Exec(
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, '', '', ?, 0)`,
		job.ID, job.SourceName, job.Content, cfgText, string(job.Status),
		job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("persisting job %s: %w", job.ID, err)
	}
	return job, nil
}

// Transition moves a job to a new status, enforcing the lifecycle edges.
// Exactly one caller wins a race to a terminal state: the loser receives
// ErrTerminalState and must treat it as a benign no-op. An artifact path
// is recorded only on the completed transition; any other target status
// clears it.
func (s *Store) Transition(id string, to JobStatus, artifactPath, message string) (*ConversionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getJob(id)
	if err != nil {
		return nil, err
	}

	if current.Status.Terminal() {
		return nil, fmt.Errorf("%w: job %s is %s", ErrTerminalState, id, current.Status)
	}
	if !transitionAllowed(current.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	if to != StatusCompleted {
		artifactPath = ""
	}
	var completedAt int64
	if to.Terminal() {
		completedAt = time.Now().UTC().UnixNano()
	}

	_, err = s.db.Exec(
		`UPDATE jobs SET status = ?, artifact_path = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		string(to), artifactPath, message, completedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("persisting job %s: %w", id, err)
	}
	return s.getJob(id)
}

func transitionAllowed(from, to JobStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Get returns the current record for the job with the given ID.
func (s *Store) Get(id string) (*ConversionJob, error) {
	return s.getJob(id)
}

func (s *Store) getJob(id string) (*ConversionJob, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// ListRecent returns up to limit jobs, newest first. A non-positive limit
// returns all jobs.
func (s *Store) ListRecent(limit int) []*ConversionJob {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.Query(
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var jobs []*ConversionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return jobs
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// NonTerminal returns the IDs of all jobs still pending or processing.
// Called at startup to find jobs orphaned by an interrupted run.
func (s *Store) NonTerminal() []string {
	rows, err := s.db.Query(
		`SELECT id FROM jobs WHERE status IN (?, ?) ORDER BY id`,
		string(StatusPending), string(StatusProcessing))
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ids
		}
		ids = append(ids, id)
	}
	return ids
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*ConversionJob, error) {
	var (
		job         ConversionJob
		status      string
		cfgText     string
		createdAt   int64
		completedAt int64
	)
	err := row.Scan(&job.ID, &job.SourceName, &job.Content, &cfgText, &status,
		&job.ArtifactPath, &job.ErrorMessage, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	job.Status = JobStatus(status)
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	if completedAt != 0 {
		job.CompletedAt = time.Unix(0, completedAt).UTC()
	}
	if cfgText != "" {
		var cfg RenderConfig
		if err := json.Unmarshal([]byte(cfgText), &cfg); err != nil {
			return nil, fmt.Errorf("decoding config for job %s: %w", job.ID, err)
		}
		job.Config = &cfg
	}
	return &job, nil
}
