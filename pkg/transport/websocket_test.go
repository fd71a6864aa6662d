package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/meld/pkg/protocol"
)

// echoServer answers every request with a response carrying the request's
// id and its action count in data.
func echoServer(t *testing.T, codec protocol.Codec, seen chan<- http.Header) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen <- r.Header.Clone()
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			op, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req protocol.Request
			if err := codec.Unmarshal(msg, &req); err != nil {
				conn.WriteMessage(websocket.TextMessage, []byte("not a response"))
				continue
			}
			out, _ := codec.Marshal(&protocol.Response{
				ID:   req.ID,
				Data: map[string]any{"actions": len(req.ActionQueue)},
				DOM:  `<div meld:id="` + req.ID + `"></div>`,
			})
			conn.WriteMessage(op, out)
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func receive(t *testing.T, c *Client) *protocol.Response {
	t.Helper()
	select {
	case resp, ok := <-c.Responses():
		if !ok {
			t.Fatal("responses closed")
		}
		return resp
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for response")
	}
	return nil
}

func TestClientRoundTrip(t *testing.T) {
	for _, codec := range []protocol.Codec{protocol.JSONCodec{}, protocol.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			seen := make(chan http.Header, 1)
			srv := echoServer(t, codec, seen)
			defer srv.Close()

			ctx := context.Background()
			c, err := Dial(ctx, wsURL(srv),
				WithCodec(codec),
				WithTokenProvider(StaticToken{"X-Csrftoken": {"tok"}}),
				WithHeader(http.Header{"X-Extra": {"1"}}),
			)
			if err != nil {
				t.Fatalf("Dial: %v", err)
			}
			defer c.Close()

			hdr := <-seen
			if hdr.Get(ClientIDHeader) != c.ID() || c.ID() == "" {
				t.Errorf("client id header = %q, want %q", hdr.Get(ClientIDHeader), c.ID())
			}
			if hdr.Get("X-Csrftoken") != "tok" || hdr.Get("X-Extra") != "1" {
				t.Errorf("handshake headers = %v", hdr)
			}

			err = c.Send(ctx, &protocol.Request{
				ID:            "c1",
				ComponentName: "form",
				ActionQueue:   []protocol.Action{protocol.NewSyncInput("name", "x")},
			})
			if err != nil {
				t.Fatalf("Send: %v", err)
			}

			resp := receive(t, c)
			if resp.ID != "c1" || resp.DOM == "" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestClientDropsMalformedFrames(t *testing.T) {
	srv := echoServer(t, protocol.JSONCodec{}, nil)
	defer srv.Close()

	ctx := context.Background()
	c, err := Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	// the server answers an undecodable request with an undecodable frame
	c.send <- []byte("{")
	if err := c.Send(ctx, &protocol.Request{ID: "c2"}); err != nil {
		t.Fatal(err)
	}
	if resp := receive(t, c); resp.ID != "c2" {
		t.Errorf("resp.ID = %q, want c2", resp.ID)
	}
}

func TestClientClose(t *testing.T) {
	srv := echoServer(t, protocol.JSONCodec{}, nil)
	defer srv.Close()

	c, err := Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.Close()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed")
	}
	if err := c.Send(context.Background(), &protocol.Request{ID: "c1"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	// the read loop closes Responses once it exits
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-c.Responses():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Responses not closed")
		}
	}
}

type countingTokens struct {
	cleared int
}

func (p *countingTokens) Token(string) (http.Header, error) { return http.Header{}, nil }
func (p *countingTokens) ClearToken(string) error           { p.cleared++; return nil }

func TestDialFailureClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tokens := &countingTokens{}
	_, err := Dial(context.Background(), wsURL(srv), WithTokenProvider(tokens))
	if err == nil {
		t.Fatal("expected dial error")
	}
	if tokens.cleared != 1 {
		t.Errorf("ClearToken calls = %d, want 1", tokens.cleared)
	}
	if !strings.Contains(err.Error(), "M040") {
		t.Errorf("err = %v, want M040", err)
	}
}
