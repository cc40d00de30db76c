// Command report2pdf converts HTML account reports to PDF from the command
// line, driving the same pipeline the library exposes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	flag "github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	report2pdf "github.com/ledgerline/go-report2pdf"
	"github.com/ledgerline/go-report2pdf/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	if flags.showVersion {
		fmt.Println("report2pdf", Version)
		return 0
	}

	logger, err := buildLogger(flags.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: initializing logger:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	applyFlagOverrides(cfg, flags)

	if flags.runDoctor {
		return runDoctor(cfg)
	}

	if len(flags.inputs) == 0 {
		fmt.Fprintln(os.Stderr, "error: no input files (see --help)")
		return 2
	}

	store, err := report2pdf.NewStore(cfg.Job.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	renderCfg := &report2pdf.RenderConfig{
		PageSize:            cfg.Page.Size,
		Orientation:         cfg.Page.Orientation,
		Margin:              cfg.Page.Margin,
		RepeatHeaders:       cfg.Table.RepeatHeaders,
		KeepRowGroups:       cfg.Table.KeepRowGroups,
		AlternateRowShading: cfg.Table.AlternateRowShading,
		AutoFitText:         cfg.Table.AutoFitText,
	}
	if err := renderCfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	opts := []report2pdf.Option{
		report2pdf.WithTimeout(cfg.JobTimeout()),
		report2pdf.WithWorkDir(cfg.Job.WorkDir),
		report2pdf.WithLogger(logger),
	}
	if cfg.Job.SizeThreshold > 0 {
		opts = append(opts, report2pdf.WithSizeThreshold(cfg.Job.SizeThreshold))
	}
	factory := func() (*report2pdf.Service, error) {
		return report2pdf.New(store, opts...), nil
	}

	// One service instance handles the orphan sweep before any new work.
	sweeper, _ := factory()
	if swept := sweeper.SweepOrphans(); swept > 0 {
		logger.Info("swept orphaned jobs from previous run", zap.Int("count", swept))
	}

	poolSize := report2pdf.ResolvePoolSize(cfg.Job.Workers)
	if poolSize > len(flags.inputs) {
		poolSize = len(flags.inputs)
	}
	pool, err := report2pdf.NewServicePool(poolSize, factory)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer func() { _ = pool.Close() }()

	failures := convertAll(context.Background(), pool, flags.inputs, flags.outDir, renderCfg, logger)
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d conversions failed\n", failures, len(flags.inputs))
		return 1
	}
	return 0
}

func convertAll(
	ctx context.Context,
	pool *report2pdf.ServicePool,
	inputs []string,
	outDir string,
	renderCfg *report2pdf.RenderConfig,
	logger *zap.Logger,
) int {
	var wg sync.WaitGroup
	results := make(chan error, len(inputs))

	for _, input := range inputs {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			results <- convertOne(ctx, pool, path, outDir, renderCfg, logger)
		}(input)
	}
	wg.Wait()
	close(results)

	failures := 0
	for err := range results {
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			failures++
		}
	}
	return failures
}

func convertOne(
	ctx context.Context,
	pool *report2pdf.ServicePool,
	inputPath, outDir string,
	renderCfg *report2pdf.RenderConfig,
	logger *zap.Logger,
) error {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	svc, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(svc)

	job, err := svc.Convert(ctx, filepath.Base(inputPath), string(content), renderCfg)
	if err != nil {
		return fmt.Errorf("converting %s: %w", inputPath, err)
	}
	if job.Status != report2pdf.StatusCompleted {
		return fmt.Errorf("converting %s: %s", inputPath, job.ErrorMessage)
	}

	outPath := filepath.Join(outDir, outputName(inputPath, job.ArtifactPath))
	if err := copyArtifact(job.ArtifactPath, outPath); err != nil {
		return fmt.Errorf("saving output for %s: %w", inputPath, err)
	}

	logger.Info("converted",
		zap.String("input", inputPath),
		zap.String("output", outPath))
	fmt.Println(outPath)
	return nil
}

// outputName derives the output file name from the input, keeping the
// artifact's extension so plain-text fallbacks keep their .txt suffix.
func outputName(inputPath, artifactPath string) string {
	base := filepath.Base(inputPath)
	stem := base[:len(base)-len(filepath.Ext(base))]
	return stem + filepath.Ext(artifactPath)
}

func copyArtifact(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func applyFlagOverrides(cfg *config.Config, flags *cliFlags) {
	if flags.timeout > 0 {
		cfg.Job.MaxDuration = flags.timeout.String()
	}
	if flags.workers > 0 {
		cfg.Job.Workers = flags.workers
	}
	if flags.pageSize != "" {
		cfg.Page.Size = flags.pageSize
	}
	if flags.orientation != "" {
		cfg.Page.Orientation = flags.orientation
	}
	if flags.margin > 0 {
		cfg.Page.Margin = flags.margin
	}
}
