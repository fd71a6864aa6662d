package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/vango-dev/meld/pkg/dom"
	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/transport"
)

// recordingTransport captures requests and lets the test feed responses.
type recordingTransport struct {
	mu        sync.Mutex
	sent      []*protocol.Request
	sendErr   error
	responses chan *protocol.Response
	closed    bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{responses: make(chan *protocol.Response, 16)}
}

func (r *recordingTransport) Send(_ context.Context, req *protocol.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return transport.ErrClosed
	}
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, req)
	return nil
}

func (r *recordingTransport) Responses() <-chan *protocol.Response { return r.responses }

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.responses)
	}
	return nil
}

func (r *recordingTransport) requests() []*protocol.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*protocol.Request(nil), r.sent...)
}

func (r *recordingTransport) last(t *testing.T) *protocol.Request {
	t.Helper()
	reqs := r.requests()
	if len(reqs) == 0 {
		t.Fatal("no request sent")
	}
	return reqs[len(reqs)-1]
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type harness struct {
	t     *testing.T
	doc   *dom.Document
	tr    *recordingTransport
	clock *ManualScheduler
	eng   *Engine
}

func newHarness(t *testing.T, markup string, opts ...Option) *harness {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	h := &harness{t: t, doc: doc, tr: newRecordingTransport(), clock: NewManualScheduler()}
	opts = append([]Option{WithScheduler(h.clock), WithLogger(quietLogger)}, opts...)
	h.eng = New(doc, h.tr, opts...)
	if _, err := h.eng.MountAll(); err != nil {
		t.Fatalf("MountAll: %v", err)
	}
	return h
}

func (h *harness) node(id string) dom.NodeID {
	h.t.Helper()
	n := h.doc.FindByAttr(h.doc.Root(), "id", id)
	if n == dom.Nil {
		h.t.Fatalf("no element with id %q", id)
	}
	return n
}

func (h *harness) component(id string) *Component {
	h.t.Helper()
	c := h.eng.Component(id)
	if c == nil {
		h.t.Fatalf("component %q not mounted", id)
	}
	return c
}

// input sets the value of the element with id and fires typ on it.
func (h *harness) input(id, typ, value string) {
	h.t.Helper()
	n := h.node(id)
	h.doc.SetValue(n, value)
	h.doc.Dispatch(dom.NewEvent(typ, n))
}

func (h *harness) fire(id, typ string) *dom.Event {
	h.t.Helper()
	ev := dom.NewEvent(typ, h.node(id))
	h.doc.Dispatch(ev)
	return ev
}
