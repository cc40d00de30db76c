package report2pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledgerline/go-report2pdf/internal/fileutil"
)

// PlainTextStrategy is the terminal fallback. It writes the document's text
// content to a .txt artifact so a job never completes with nothing to show,
// even on a host where no PDF path works at all.
type PlainTextStrategy struct{}

var _ RenderStrategy = (*PlainTextStrategy)(nil)

func NewPlainTextStrategy() *PlainTextStrategy { return &PlainTextStrategy{} }

func (p *PlainTextStrategy) Name() string { return "plaintext" }

func (p *PlainTextStrategy) Attempt(ctx context.Context, in *RenderInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lines := structuralLines(in.Document, 100)
	content := strings.TrimSpace(strings.Join(lines, "\n"))
	if content == "" {
		return "", ErrEmptyDocument
	}

	outPath, err := fileutil.ArtifactPath(in.WorkDir, in.JobID, p.Name(), "txt")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, []byte(content+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return outPath, nil
}
