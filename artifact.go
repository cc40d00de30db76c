package report2pdf

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ledgerline/go-report2pdf/internal/fileutil"
)

// pdfSignature is the magic prefix every valid PDF file starts with.
var pdfSignature = []byte("%PDF-")

// Artifact describes a completed render output.
type Artifact struct {
	Path     string `json:"path"`
	Strategy string `json:"strategy"`
}

// validatePDFArtifact checks that the file at path exists, is non-empty,
// and carries the PDF signature. A renderer that exits cleanly but writes
// a truncated or empty file must not count as a success.
func validatePDFArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: empty file %s", ErrArtifactInvalid, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactInvalid, err)
	}
	defer f.Close()

	header := make([]byte, len(pdfSignature))
	if _, err := f.Read(header); err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrArtifactInvalid, err)
	}
	if !bytes.HasPrefix(header, pdfSignature) {
		return fmt.Errorf("%w: missing PDF signature in %s", ErrArtifactInvalid, path)
	}
	return nil
}

// removeJobArtifacts deletes every file the job produced in the work
// directory, including temp files and partial outputs from failed attempts.
func removeJobArtifacts(workDir, jobID string) error {
	return fileutil.RemoveJobFiles(workDir, jobID)
}
