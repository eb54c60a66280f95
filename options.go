package pdfgraph

import "log/slog"

// An Option configures Load, Parse and Normalize.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	dropFreed   bool
	skipResolve bool
}

func newConfig(opts []Option) config {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// WithLogger sets the logger used for debug diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithFreedObjects makes Normalize honor the free entries of each revision:
// an object freed by a revision is removed from the index instead of
// keeping its last live content. Off by default.
func WithFreedObjects(drop bool) Option {
	return func(c *config) { c.dropFreed = drop }
}

// WithoutResolve skips the dangling-reference walk in Load.
func WithoutResolve() Option {
	return func(c *config) { c.skipResolve = true }
}
