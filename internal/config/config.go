// Package config loads conversion settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ledgerline/go-report2pdf/internal/fileutil"
	"github.com/ledgerline/go-report2pdf/internal/yamlutil"
)

// defaultFileName is looked up in the working directory when no config path
// is given.
const defaultFileName = "report2pdf.yaml"

var ErrConfigNotFound = errors.New("config file not found")

// JobConfig bounds job execution and names the directories the service
// writes to.
type JobConfig struct {
	// MaxDuration is a Go duration string, e.g. "90s" or "2m".
	MaxDuration   string `yaml:"maxDuration"`
	DataDir       string `yaml:"dataDir"`
	WorkDir       string `yaml:"workDir"`
	SizeThreshold int    `yaml:"sizeThreshold"`
	Workers       int    `yaml:"workers"`
}

// PageConfig is the page geometry section.
type PageConfig struct {
	Size        string  `yaml:"size"`
	Orientation string  `yaml:"orientation"`
	Margin      float64 `yaml:"margin"`
}

// TableConfig holds the table presentation toggles.
type TableConfig struct {
	RepeatHeaders       bool `yaml:"repeatHeaders"`
	KeepRowGroups       bool `yaml:"keepRowGroups"`
	AlternateRowShading bool `yaml:"alternateRowShading"`
	AutoFitText         bool `yaml:"autoFitText"`
}

// Config is the full configuration document.
type Config struct {
	Job   JobConfig   `yaml:"job"`
	Page  PageConfig  `yaml:"page"`
	Table TableConfig `yaml:"table"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Job: JobConfig{
			MaxDuration: "2m",
			DataDir:     defaultDataDir(),
			WorkDir:     os.TempDir(),
		},
		Page: PageConfig{
			Size:        "letter",
			Orientation: "portrait",
			Margin:      0.5,
		},
		Table: TableConfig{
			RepeatHeaders: true,
			KeepRowGroups: true,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "report2pdf-jobs")
	}
	return filepath.Join(home, ".report2pdf", "jobs")
}

// Load reads a configuration file. An empty path loads report2pdf.yaml from
// the working directory when present, otherwise returns defaults. A bare
// file name is resolved against the working directory and then the user's
// ~/.report2pdf directory. Unknown fields in the file are an error.
func Load(path string) (*Config, error) {
	switch {
	case path == "":
		if !fileutil.FileExists(defaultFileName) {
			return Default(), nil
		}
		path = defaultFileName
	case !fileutil.IsFilePath(path):
		resolved, err := resolveName(path)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveName locates a bare config file name: the working directory wins,
// then the user's ~/.report2pdf directory.
func resolveName(name string) (string, error) {
	if fileutil.FileExists(name) {
		return name, nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".report2pdf", name)
		if fileutil.FileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, name)
}

// JobTimeout returns the parsed per-job duration bound. Call Validate
// first; on an unparsed config this falls back to the default.
func (c *Config) JobTimeout() time.Duration {
	d, err := time.ParseDuration(c.Job.MaxDuration)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// Validate checks config invariants that the YAML schema cannot express.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Job.MaxDuration)
	if err != nil {
		return fmt.Errorf("job.maxDuration: %w", err)
	}
	if d <= 0 {
		return errors.New("job.maxDuration must be positive")
	}
	if c.Job.SizeThreshold < 0 {
		return errors.New("job.sizeThreshold cannot be negative")
	}
	if c.Job.Workers < 0 {
		return errors.New("job.workers cannot be negative")
	}
	if c.Page.Margin < 0.25 || c.Page.Margin > 3.0 {
		return fmt.Errorf("page.margin %.2f out of range [0.25, 3.00]", c.Page.Margin)
	}
	return nil
}
