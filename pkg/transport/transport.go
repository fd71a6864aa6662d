package transport

import (
	"context"
	"net/http"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/protocol"
)

// Transport sends requests and delivers responses. Responses is closed when
// the transport shuts down.
type Transport interface {
	Send(ctx context.Context, req *protocol.Request) error
	Responses() <-chan *protocol.Response
	Close() error
}

// TokenProvider supplies the session or CSRF headers for a connection.
// ClearToken is called after a failed handshake so that a retry fetches a
// fresh token.
type TokenProvider interface {
	Token(url string) (http.Header, error)
	ClearToken(url string) error
}

// StaticToken is a TokenProvider returning the same headers every time.
type StaticToken http.Header

func (t StaticToken) Token(string) (http.Header, error) { return http.Header(t).Clone(), nil }
func (StaticToken) ClearToken(string) error             { return nil }

type nilProvider struct{}

func (*nilProvider) Token(string) (http.Header, error) { return nil, nil }
func (*nilProvider) ClearToken(string) error           { return nil }

// ErrClosed is returned by Send after the transport has shut down.
var ErrClosed = errors.New("M041")
