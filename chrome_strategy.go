package report2pdf

import (
	"context"
	"fmt"
	"os"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/ledgerline/go-report2pdf/internal/fileutil"
	"github.com/ledgerline/go-report2pdf/internal/process"
)

// launchProfile is a named set of browser launch flags. Profiles are tried
// in order: a hardened sandbox-friendly profile first, then progressively
// more permissive ones for containers and restricted hosts.
type launchProfile struct {
	name  string
	flags []chromedp.ExecAllocatorOption
}

func launchProfiles() []launchProfile {
	return []launchProfile{
		{
			name: "full",
			flags: []chromedp.ExecAllocatorOption{
				chromedp.Flag("headless", "new"),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("hide-scrollbars", true),
				chromedp.Flag("mute-audio", true),
				chromedp.Flag("disable-extensions", true),
				chromedp.Flag("disable-background-networking", true),
				chromedp.Flag("disable-default-apps", true),
				chromedp.Flag("disable-sync", true),
				chromedp.Flag("no-first-run", true),
			},
		},
		{
			name: "minimal",
			flags: []chromedp.ExecAllocatorOption{
				chromedp.Flag("headless", "new"),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.Flag("no-first-run", true),
			},
		},
		{
			name: "bare",
			flags: []chromedp.ExecAllocatorOption{
				chromedp.Flag("headless", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-setuid-sandbox", true),
				chromedp.Flag("single-process", true),
			},
		},
	}
}

// BrowserStrategy renders through a headless Chromium instance. It is the
// highest-fidelity strategy: the full stylesheet, including the computed
// layout directives, is honored by the browser's print engine.
type BrowserStrategy struct {
	Locator BrowserLocator
}

var _ RenderStrategy = (*BrowserStrategy)(nil)

// NewBrowserStrategy returns a browser strategy using default discovery.
func NewBrowserStrategy() *BrowserStrategy {
	return &BrowserStrategy{Locator: &defaultLocator{}}
}

func (b *BrowserStrategy) Name() string { return "browser" }

func (b *BrowserStrategy) Attempt(ctx context.Context, in *RenderInput) (string, error) {
	execPath, err := b.Locator.Locate()
	if err != nil {
		return "", err
	}

	srcPath, cleanup, err := fileutil.WriteJobTempFile(in.WorkDir, in.JobID, in.HTML, "html")
	if err != nil {
		return "", fmt.Errorf("staging source document: %w", err)
	}
	defer cleanup()

	outPath, err := fileutil.ArtifactPath(in.WorkDir, in.JobID, b.Name(), "pdf")
	if err != nil {
		return "", err
	}

	var lastErr error
	for _, profile := range launchProfiles() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := b.printWithProfile(ctx, execPath, profile, srcPath, outPath, in.Config); err != nil {
			lastErr = fmt.Errorf("profile %s: %w", profile.name, err)
			continue
		}
		if err := validatePDFArtifact(outPath); err != nil {
			lastErr = err
			_ = os.Remove(outPath)
			continue
		}
		return outPath, nil
	}
	return "", lastErr
}

func (b *BrowserStrategy) printWithProfile(
	ctx context.Context,
	execPath string,
	profile launchProfile,
	srcPath, outPath string,
	cfg *RenderConfig,
) error {
	opts := append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(execPath)}, profile.flags...)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	// A cancelled context can leave orphaned renderer children behind;
	// kill the whole process group on the way out.
	defer func() {
		if c := chromedp.FromContext(taskCtx); c != nil && c.Browser != nil {
			if proc := c.Browser.Process(); proc != nil {
				process.KillProcessGroup(proc.Pid)
			}
		}
	}()

	cfg = cfg.resolved()
	width, height := cfg.paperDimensions()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("file://"+srcPath),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			pdf, _, printErr = page.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(cfg.Margin).
				WithMarginBottom(cfg.Margin).
				WithMarginLeft(cfg.Margin).
				WithMarginRight(cfg.Margin).
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return printErr
		}),
	)
	if err != nil {
		return fmt.Errorf("printing: %w", err)
	}

	if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}
