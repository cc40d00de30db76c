package report2pdf

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.25
	MaxMargin     = 3.0
	DefaultMargin = 0.5
)

// RenderConfig is the presentation snapshot attached to a job.
// It is immutable once attached.
type RenderConfig struct {
	PageSize    string  `json:"page_size" yaml:"pageSize"`
	Orientation string  `json:"orientation" yaml:"orientation"`
	Margin      float64 `json:"margin" yaml:"margin"` // inches, all sides

	// Presentation toggles.
	RepeatHeaders       bool `json:"repeat_headers" yaml:"repeatHeaders"`
	KeepRowGroups       bool `json:"keep_row_groups" yaml:"keepRowGroups"`
	AlternateRowShading bool `json:"alternate_row_shading" yaml:"alternateRowShading"`
	AutoFitText         bool `json:"auto_fit_text" yaml:"autoFitText"`
}

// DefaultRenderConfig returns a config with default values.
func DefaultRenderConfig() *RenderConfig {
	return &RenderConfig{
		PageSize:      PageSizeLetter,
		Orientation:   OrientationPortrait,
		Margin:        DefaultMargin,
		RepeatHeaders: true,
		KeepRowGroups: true,
	}
}

// Validate checks that the config is valid.
// Returns nil if c is nil (nil means use defaults).
func (c *RenderConfig) Validate() error {
	if c == nil {
		return nil
	}

	if !isValidPageSize(c.PageSize) {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, c.PageSize)
	}

	if !isValidOrientation(c.Orientation) {
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, c.Orientation)
	}

	if c.Margin < MinMargin || c.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, c.Margin, MinMargin, MaxMargin)
	}

	return nil
}

// resolved returns c, or the default config when c is nil.
func (c *RenderConfig) resolved() *RenderConfig {
	if c == nil {
		return DefaultRenderConfig()
	}
	return c
}

// Paper dimensions in inches per page size class.
var paperSizes = map[string][2]float64{
	PageSizeLetter: {8.5, 11},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14},
}

// paperDimensions returns the page width and height in inches,
// swapped for landscape orientation.
func (c *RenderConfig) paperDimensions() (width, height float64) {
	dims, ok := paperSizes[strings.ToLower(c.PageSize)]
	if !ok {
		dims = paperSizes[PageSizeLetter]
	}
	if strings.ToLower(c.Orientation) == OrientationLandscape {
		return dims[1], dims[0]
	}
	return dims[0], dims[1]
}

// isValidPageSize checks if size is a known page size (case-insensitive).
func isValidPageSize(size string) bool {
	switch strings.ToLower(size) {
	case PageSizeLetter, PageSizeA4, PageSizeLegal:
		return true
	}
	return false
}

// isValidOrientation checks if orientation is valid (case-insensitive).
func isValidOrientation(orientation string) bool {
	switch strings.ToLower(orientation) {
	case OrientationPortrait, OrientationLandscape:
		return true
	}
	return false
}

// defaultJobTimeout bounds one job end to end when no timeout is specified.
const defaultJobTimeout = 2 * time.Minute

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	timeout       time.Duration
	workDir       string
	sizeThreshold int
}

// WithTimeout sets the maximum duration of one conversion job.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("report2pdf: WithTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.timeout = d
	}
}

// WithWorkDir sets the directory for temporary render artifacts.
// Defaults to the system temp directory.
func WithWorkDir(dir string) Option {
	return func(s *Service) {
		s.cfg.workDir = dir
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStrategies replaces the default render strategy chain.
// Strategies are attempted in the given order.
func WithStrategies(strategies ...RenderStrategy) Option {
	return func(s *Service) {
		s.strategies = strategies
	}
}

// WithSizeThreshold overrides the byte threshold above which the
// preprocessor applies its size-reduction pass.
func WithSizeThreshold(n int) Option {
	return func(s *Service) {
		s.cfg.sizeThreshold = n
	}
}
