package meldtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/transport"
)

// Server is a WebSocket endpoint that answers each request with a handler.
type Server struct {
	srv     *httptest.Server
	codec   protocol.Codec
	handler transport.Handler

	mu       sync.Mutex
	requests []*protocol.Request
	notify   chan *protocol.Request
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCodec sets the wire codec. The default is JSON.
func WithCodec(c protocol.Codec) ServerOption {
	return func(s *Server) { s.codec = c }
}

// NewServer starts a server that is closed when the test ends.
// A nil handler never replies.
func NewServer(t testing.TB, h transport.Handler, opts ...ServerOption) *Server {
	t.Helper()
	s := &Server{
		codec:   protocol.JSONCodec{},
		handler: h,
		notify:  make(chan *protocol.Request, 64),
	}
	for _, opt := range opts {
		opt(s)
	}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.serve(r, conn)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) serve(r *http.Request, conn *websocket.Conn) {
	for {
		op, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req protocol.Request
		if err := s.codec.Unmarshal(msg, &req); err != nil {
			s.write(conn, op, &protocol.Response{Error: err.Error()})
			continue
		}
		s.record(&req)
		if s.handler == nil {
			continue
		}
		resp, err := s.handler(r.Context(), &req)
		if err != nil {
			resp = &protocol.Response{ID: req.ID, Error: err.Error()}
		}
		if resp != nil {
			s.write(conn, op, resp)
		}
	}
}

func (s *Server) write(conn *websocket.Conn, op int, resp *protocol.Response) {
	out, err := s.codec.Marshal(resp)
	if err != nil {
		return
	}
	conn.WriteMessage(op, out)
}

func (s *Server) record(req *protocol.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	select {
	case s.notify <- req:
	default:
	}
}

// URL returns the ws:// address of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Requests returns every request received so far.
func (s *Server) Requests() []*protocol.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.Request(nil), s.requests...)
}

// WaitRequest blocks until the next request arrives and fails the test after
// five seconds.
func (s *Server) WaitRequest(t testing.TB) *protocol.Request {
	t.Helper()
	select {
	case req := <-s.notify:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for request")
	}
	return nil
}
