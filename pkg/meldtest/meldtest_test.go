package meldtest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vango-dev/meld/pkg/dom"
	"github.com/vango-dev/meld/pkg/engine"
	"github.com/vango-dev/meld/pkg/meldtest"
	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/transport"
)

const counter = `<div meld:id="c1" meld:name="app.Counter" meld:data='{"count":0}'>` +
	`<button id="inc" meld:click="increment">+</button><span id="out">0</span></div>`

func increment(_ context.Context, req *protocol.Request) (*protocol.Response, error) {
	count, _ := req.Data["count"].(float64)
	for _, a := range req.ActionQueue {
		call, ok := a.CallMethod()
		if !ok {
			continue
		}
		if call.Name == "fail" {
			return nil, errors.New("fail called")
		}
		count++
	}
	return &protocol.Response{
		ID:   req.ID,
		Data: map[string]any{"count": count},
		DOM: `<div meld:id="c1" meld:name="app.Counter"><button id="inc" meld:click="increment">+</button>` +
			`<span id="out">` + formatCount(count) + `</span></div>`,
	}, nil
}

func formatCount(f float64) string {
	switch f {
	case 0:
		return "0"
	case 1:
		return "1"
	default:
		return "many"
	}
}

func waitFor(t *testing.T, eng *engine.Engine, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		if err := eng.Do(context.Background(), func() { ok = cond() }); err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEngineOverWebSocket(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, codec := range []protocol.Codec{protocol.JSONCodec{}, protocol.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			srv := meldtest.NewServer(t, increment, meldtest.WithCodec(codec))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			client, err := transport.Dial(ctx, srv.URL(), transport.WithCodec(codec), transport.WithLogger(logger))
			if err != nil {
				t.Fatalf("Dial() error: %v", err)
			}
			doc := dom.MustParseString(counter)
			eng := engine.New(doc, client, engine.WithDebounce(time.Millisecond), engine.WithLogger(logger))
			defer eng.Close()
			if _, err := eng.MountAll(); err != nil {
				t.Fatal(err)
			}
			root := eng.Component("c1").Root()
			go eng.Run(ctx)

			if err := eng.Do(ctx, func() {
				doc.Dispatch(dom.NewEvent("click", doc.FindByAttr(doc.Root(), "id", "inc")))
			}); err != nil {
				t.Fatal(err)
			}

			req := srv.WaitRequest(t)
			if req.ComponentName != "app.Counter" || len(req.ActionQueue) != 1 {
				t.Fatalf("request = %+v", req)
			}
			waitFor(t, eng, func() bool {
				return doc.TextContent(doc.FindByAttr(doc.Root(), "id", "out")) == "1"
			})
			eng.Do(ctx, func() {
				root = eng.Component("c1").Root()
				meldtest.ExpectContains(t, doc, root, `<span id="out">1</span>`)
				meldtest.ExpectNotContains(t, doc, root, "many")
				meldtest.ExpectAttribute(t, doc, root, "meld:name", "app.Counter")
			})

			if err := eng.Do(ctx, func() { eng.Call("c1", "fail") }); err != nil {
				t.Fatal(err)
			}
			srv.WaitRequest(t)
			waitFor(t, eng, func() bool {
				c := eng.Component("c1")
				return !c.InFlight() && len(c.Queue()) == 1
			})
			if got := len(srv.Requests()); got != 2 {
				t.Errorf("server saw %d requests, want 2", got)
			}
		})
	}
}

func TestServerWithoutHandlerOnlyRecords(t *testing.T) {
	srv := meldtest.NewServer(t, nil)
	ctx := context.Background()
	client, err := transport.Dial(ctx, srv.URL(), transport.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.Send(ctx, &protocol.Request{ID: "c9", ComponentName: "x"}); err != nil {
		t.Fatal(err)
	}
	if req := srv.WaitRequest(t); req.ID != "c9" {
		t.Errorf("ID = %q, want c9", req.ID)
	}
	select {
	case resp := <-client.Responses():
		t.Errorf("unexpected response %+v", resp)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExpectHelpers(t *testing.T) {
	doc := dom.MustParseString(`<div id="a" class="x">hello <b>world</b></div>`)
	a := doc.FindByAttr(doc.Root(), "id", "a")
	meldtest.ExpectContains(t, doc, a, "<b>world</b>")
	meldtest.ExpectNotContains(t, doc, a, "goodbye")
	meldtest.ExpectAttribute(t, doc, a, "class", "x")
	meldtest.ExpectText(t, doc, a, "hello world")
}
