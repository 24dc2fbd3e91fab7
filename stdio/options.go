package stdio

import (
	"time"

	"go.uber.org/zap"
)

// Option configures an Adapter.
type Option func(a *Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithDrain sets how long outstanding requests may finish after end of input.
func WithDrain(drain time.Duration) Option {
	return func(a *Adapter) {
		a.drain = drain
	}
}

// WithFilter narrows tools/list results.
func WithFilter(filter *Filter) Option {
	return func(a *Adapter) {
		a.filter = filter
	}
}

// WithToolsAnnouncement emits a tools list_changed notification at startup.
func WithToolsAnnouncement(announce bool) Option {
	return func(a *Adapter) {
		a.announce = announce
	}
}

// WithToolDefaults fills in a missing description and inputSchema on tools/list results.
func WithToolDefaults(enabled bool) Option {
	return func(a *Adapter) {
		a.defaults = enabled
	}
}

// WithSessionConfig attaches config as params.sessionConfig to every forwarded initialize request.
func WithSessionConfig(config any) Option {
	return func(a *Adapter) {
		a.session = config
	}
}
