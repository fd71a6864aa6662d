package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/meld/internal/config"
	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/engine"
	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/snapshot"
	"github.com/vango-dev/meld/pkg/telemetry"
	"github.com/vango-dev/meld/pkg/transport"
)

// runtimeDeps bundles what run builds from a Config.
type runtimeDeps struct {
	metrics  *telemetry.Metrics
	registry *prometheus.Registry
	tracer   *telemetry.Tracer
	store    snapshot.Store
}

func newRuntimeDeps(cfg *config.Config) (*runtimeDeps, error) {
	reg := prometheus.NewRegistry()
	deps := &runtimeDeps{
		registry: reg,
		metrics: telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Metrics.Namespace),
			telemetry.WithRegistry(reg),
		),
		tracer: telemetry.NewTracer(),
	}

	switch cfg.Snapshot.Backend {
	case "s3":
		client := snapshot.NewS3Client(cfg.Snapshot.Region, cfg.Snapshot.Endpoint)
		deps.store = snapshot.NewS3Store(client, cfg.Snapshot.Bucket, cfg.Snapshot.Prefix)
	case "memory", "":
		deps.store = snapshot.NewMemoryStore()
	default:
		return nil, errors.New("M051").WithDetailf("snapshot.backend: unknown backend %q", cfg.Snapshot.Backend)
	}
	return deps, nil
}

func engineOptions(cfg *config.Config, deps *runtimeDeps, logger *slog.Logger) []engine.Option {
	return []engine.Option{
		engine.WithPrefix(cfg.Prefix),
		engine.WithDebounce(cfg.DebounceDuration()),
		engine.WithPollInterval(cfg.PollDuration()),
		engine.WithLogger(logger),
		engine.WithMetrics(deps.metrics),
		engine.WithTracer(deps.tracer),
	}
}

func transportOptions(cfg *config.Config, deps *runtimeDeps, logger *slog.Logger) ([]transport.Option, error) {
	codec, err := protocol.CodecByName(cfg.Transport.Codec)
	if err != nil {
		return nil, errors.New("M051").WithDetail("transport.codec").Wrap(err)
	}
	header := http.Header{}
	for k, v := range cfg.Transport.Headers {
		header.Set(k, v)
	}
	return []transport.Option{
		transport.WithCodec(codec),
		transport.WithHeader(header),
		transport.WithWriteTimeout(cfg.WriteTimeout()),
		transport.WithReadLimit(cfg.Transport.ReadLimit),
		transport.WithLogger(logger),
		transport.WithMetrics(deps.metrics),
	}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
