// Package fileutil provides file and path utility functions for job-scoped
// render artifacts.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrEmptyJobID    = errors.New("job id cannot be empty")
	ErrUnsafeName    = errors.New("name contains path separator or null byte")
	ErrEmptyContent  = errors.New("content cannot be empty")
	ErrNoArtifactDir = errors.New("artifact directory cannot be empty")
)

// artifactPrefix namespaces every file this module writes, so cleanup can
// match artifacts by naming convention without content inspection.
const artifactPrefix = "report2pdf"

// ArtifactPath returns the deterministic output path for a job's artifact
// produced by the named strategy.
func ArtifactPath(dir, jobID, strategy, ext string) (string, error) {
	if err := validateParts(dir, jobID, strategy, ext); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s-%s.%s", artifactPrefix, jobID, strategy, ext)
	return filepath.Join(dir, name), nil
}

// WriteJobTempFile creates a temporary file scoped to a job, with the given
// content and extension. Returns the file path and a cleanup function.
func WriteJobTempFile(dir, jobID, content, ext string) (path string, cleanup func(), err error) {
	if err := validateParts(dir, jobID, "tmp", ext); err != nil {
		return "", nil, err
	}
	if content == "" {
		return "", nil, ErrEmptyContent
	}

	pattern := fmt.Sprintf("%s-%s-tmp-*.%s", artifactPrefix, jobID, ext)
	tmpFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// RemoveJobFiles deletes every file in dir that belongs to the job,
// matching by the job-scoped naming convention. Best effort: all removals
// are attempted and failures aggregated.
func RemoveJobFiles(dir, jobID string) error {
	if jobID == "" {
		return ErrEmptyJobID
	}
	matches, err := filepath.Glob(filepath.Join(dir, artifactPrefix+"-"+jobID+"-*"))
	if err != nil {
		return fmt.Errorf("matching job files: %w", err)
	}

	var errs []error
	for _, m := range matches {
		if removeErr := os.Remove(m); removeErr != nil && !os.IsNotExist(removeErr) {
			errs = append(errs, removeErr)
		}
	}
	return errors.Join(errs...)
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than
// a name. A string containing path separators (/, \) is treated as a path.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// validateParts checks that no path component can escape the artifact dir.
func validateParts(dir, jobID, strategy, ext string) error {
	if dir == "" {
		return ErrNoArtifactDir
	}
	if jobID == "" {
		return ErrEmptyJobID
	}
	for _, part := range []string{jobID, strategy, ext} {
		if strings.ContainsAny(part, "/\\\x00") {
			return fmt.Errorf("%w: %q", ErrUnsafeName, part)
		}
	}
	return nil
}
