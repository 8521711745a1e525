package sed

import (
	"log/slog"
	"runtime"
)

// Option configures a Detector.
type Option func(*config)

type config struct {
	threshold float64
	maxClip   float64
	poolSize  int
	logger    *slog.Logger
}

func defaultConfig() config {
	return config{
		threshold: 0.5,
		maxClip:   10.0,
		poolSize:  runtime.NumCPU(),
		logger:    slog.Default(),
	}
}

// WithThreshold sets the decoding threshold (default: 0.5).
func WithThreshold(t float64) Option {
	return func(c *config) {
		c.threshold = t
	}
}

// WithMaxClipLength sets the maximum clip length in seconds used to clip
// decoded event boundaries (default: 10.0).
func WithMaxClipLength(s float64) Option {
	return func(c *config) {
		if s > 0 {
			c.maxClip = s
		}
	}
}

// WithPoolSize sets the ONNX session pool size (default: runtime.NumCPU()).
func WithPoolSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
