package engine

import (
	"log/slog"
	"time"

	"vidtrack/internal/channel"
	"vidtrack/internal/progress"
)

// Option configures an Engine.
type Option func(*Engine)

// WithChannelURL sets the push channel endpoint.
func WithChannelURL(url string) Option {
	return func(e *Engine) {
		e.channelURL = url
	}
}

// WithDialer injects the push channel dialer (useful for testing).
func WithDialer(d channel.Dialer) Option {
	return func(e *Engine) {
		e.dialer = d
	}
}

// WithSubmitter sets the collaborator that uploads the input.
func WithSubmitter(s Submitter) Option {
	return func(e *Engine) {
		e.submitter = s
	}
}

// WithCatalog overrides the step catalog.
func WithCatalog(c []progress.StepDef) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithObserver registers an observer of published snapshots.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithRefreshInterval sets how often the ETA is recomputed while a run is
// in flight. Zero disables periodic refresh.
func WithRefreshInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.refresh = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}
