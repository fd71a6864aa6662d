package engine

import (
	"log/slog"
	"time"

	"github.com/vango-dev/meld/pkg/binding"
	"github.com/vango-dev/meld/pkg/telemetry"
)

// Defaults.
const (
	DefaultDebounce     = 250 * time.Millisecond
	DefaultPollInterval = 2 * time.Second
	DefaultPollMethod   = "refresh"
	DefaultTaskBuffer   = 256
	DefaultSendTimeout  = 10 * time.Second
)

// Config holds engine settings.
type Config struct {
	// Prefix is the attribute namespace (default: "meld:").
	Prefix string

	// Debounce applies when a binding has no debounce modifier.
	Debounce time.Duration

	// PollInterval applies to poll bindings without an interval.
	PollInterval time.Duration

	// SendTimeout bounds one transport Send.
	SendTimeout time.Duration

	// TaskBuffer is the capacity of the loop's task queue.
	TaskBuffer int

	Logger    *slog.Logger
	Scheduler Scheduler
	Metrics   *telemetry.Metrics
	Tracer    *telemetry.Tracer
}

// Option configures an Engine.
type Option func(*Config)

// WithPrefix sets the attribute prefix.
func WithPrefix(prefix string) Option {
	return func(c *Config) { c.Prefix = prefix }
}

// WithDebounce sets the default debounce.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) { c.Debounce = d }
}

// WithPollInterval sets the default poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithSendTimeout bounds each transport Send.
func WithSendTimeout(d time.Duration) Option {
	return func(c *Config) { c.SendTimeout = d }
}

// WithTaskBuffer sets the task queue capacity.
func WithTaskBuffer(n int) Option {
	return func(c *Config) { c.TaskBuffer = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithScheduler replaces the timer source. The default posts timer callbacks
// onto the loop started by Run.
func WithScheduler(s Scheduler) Option {
	return func(c *Config) { c.Scheduler = s }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithTracer enables round-trip spans.
func WithTracer(t *telemetry.Tracer) Option {
	return func(c *Config) { c.Tracer = t }
}

func defaultConfig() Config {
	return Config{
		Prefix:       binding.DefaultPrefix,
		Debounce:     DefaultDebounce,
		PollInterval: DefaultPollInterval,
		SendTimeout:  DefaultSendTimeout,
		TaskBuffer:   DefaultTaskBuffer,
		Logger:       slog.Default(),
	}
}
