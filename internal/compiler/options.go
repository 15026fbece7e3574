package compiler

import (
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/metrics"
)

// Option configures a Service.
type Option func(*Service)

// WithHistory records every compilation in store.
func WithHistory(store history.Store) Option {
	return func(s *Service) { s.history = store }
}

// WithEvents publishes every compilation to p.
func WithEvents(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDefaults sets the context defaults applied when a request leaves the
// user, folder or reference instant empty.
func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used for default reference instants and record
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
