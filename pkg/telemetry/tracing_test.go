package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) SetStatus(c codes.Code, _ string)              { s.status = c }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *recordingSpan) End(...trace.SpanEndOption)                    { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	s.SetAttributes(cfg.Attributes()...)
	t.spans = append(t.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer { return p.tracer }

func TestTracerRoundTrip(t *testing.T) {
	rt := &recordingTracer{}
	tr := NewTracer(WithTracerProvider(&recordingProvider{tracer: rt}), WithTracerName("test"))

	ctx, span := tr.StartRoundTrip(context.Background(), "c1", "form", 2)
	if trace.SpanFromContext(ctx) != span {
		t.Fatal("span should be stored in the returned context")
	}
	EndRoundTrip(span, StatusApplied, nil)

	_, failed := tr.StartRoundTrip(context.Background(), "c1", "form", 1)
	EndRoundTrip(failed, StatusError, errors.New("boom"))

	if len(rt.spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(rt.spans))
	}
	ok := rt.spans[0]
	if ok.name != "meld.round_trip" || !ok.ended || ok.status != codes.Ok {
		t.Errorf("span = %+v", ok)
	}
	if got := ok.attrs["meld.component_id"].AsString(); got != "c1" {
		t.Errorf("component_id = %q", got)
	}
	if got := ok.attrs["meld.actions"].AsInt64(); got != 2 {
		t.Errorf("actions = %d", got)
	}
	if got := ok.attrs["meld.status"].AsString(); got != StatusApplied {
		t.Errorf("status = %q", got)
	}

	bad := rt.spans[1]
	if bad.status != codes.Error || len(bad.errs) != 1 {
		t.Errorf("error span = %+v", bad)
	}
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	ctx, span := tr.StartRoundTrip(context.Background(), "c1", "form", 0)
	if ctx == nil || span == nil {
		t.Fatal("nil tracer should return a usable span")
	}
	EndRoundTrip(span, StatusApplied, nil)
	EndRoundTrip(nil, StatusApplied, nil)
}

func TestNilTracerLeavesCallerSpanOpen(t *testing.T) {
	parent := &recordingSpan{attrs: map[attribute.Key]attribute.Value{}}
	ctx := trace.ContextWithSpan(context.Background(), parent)

	var tr *Tracer
	got, span := tr.StartRoundTrip(ctx, "c1", "form", 1)
	if got != ctx {
		t.Error("nil tracer should return ctx unchanged")
	}
	EndRoundTrip(span, StatusError, errors.New("boom"))

	if parent.ended || parent.status != codes.Unset || len(parent.errs) != 0 || len(parent.attrs) != 0 {
		t.Errorf("caller span was touched: %+v", parent)
	}
}
