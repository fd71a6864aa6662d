package transport

import (
	"context"
	"sync"

	"github.com/vango-dev/meld/pkg/protocol"
)

// Handler renders the response to one request. A returned error becomes an
// error-flagged response; a nil response sends nothing.
type Handler func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// Loopback is an in-process Transport. Requests are encoded and decoded with
// its codec, as they would be on the wire, and handled one at a time in
// arrival order.
type Loopback struct {
	handler   Handler
	codec     protocol.Codec
	requests  chan []byte
	responses chan *protocol.Response
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLoopback starts a loopback transport around h. A nil codec selects JSON.
func NewLoopback(h Handler, codec protocol.Codec) *Loopback {
	if codec == nil {
		codec = protocol.JSONCodec{}
	}
	l := &Loopback{
		handler:   h,
		codec:     codec,
		requests:  make(chan []byte, DefaultSendBuffer),
		responses: make(chan *protocol.Response, DefaultSendBuffer),
		done:      make(chan struct{}),
	}
	l.wg.Add(1)
	go l.serve()
	return l
}

// Send implements Transport.
func (l *Loopback) Send(ctx context.Context, req *protocol.Request) error {
	frame, err := protocol.EncodeRequest(l.codec, req)
	if err != nil {
		return err
	}
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.requests <- frame:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Responses implements Transport.
func (l *Loopback) Responses() <-chan *protocol.Response { return l.responses }

// Close stops the handler loop and closes Responses.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
		close(l.responses)
	})
	return nil
}

func (l *Loopback) serve() {
	defer l.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-l.done
		cancel()
	}()

	for {
		select {
		case frame := <-l.requests:
			var req protocol.Request
			if err := l.codec.Unmarshal(frame, &req); err != nil {
				l.deliver(&protocol.Response{Error: err.Error()})
				continue
			}
			resp, err := l.handler(ctx, &req)
			if err != nil {
				resp = &protocol.Response{ID: req.ID, Error: err.Error()}
			}
			if resp != nil {
				l.deliver(resp)
			}
		case <-l.done:
			return
		}
	}
}

func (l *Loopback) deliver(resp *protocol.Response) {
	select {
	case l.responses <- resp:
	case <-l.done:
	}
}
