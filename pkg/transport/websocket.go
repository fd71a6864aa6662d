package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/protocol"
	"github.com/vango-dev/meld/pkg/telemetry"
)

// ClientIDHeader carries the client identifier on the handshake.
const ClientIDHeader = "X-Meld-Client"

// Defaults for Config.
const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultReadLimit    = 1 << 20
	DefaultSendBuffer   = 32
)

// Config configures a websocket Client.
type Config struct {
	// Codec encodes requests and decodes responses (default: JSON).
	Codec protocol.Codec

	// Dialer dials the connection (default: websocket.DefaultDialer).
	Dialer *websocket.Dialer

	// TokenProvider supplies handshake headers.
	TokenProvider TokenProvider

	// Header is merged into the handshake headers.
	Header http.Header

	// WriteTimeout bounds one frame write.
	WriteTimeout time.Duration

	// ReadLimit bounds one inbound frame in bytes.
	ReadLimit int64

	// SendBuffer is the capacity of the outbound frame queue.
	SendBuffer int

	// Limits bounds decoded responses.
	Limits protocol.Limits

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Option configures a Client.
type Option func(*Config)

// WithCodec sets the codec.
func WithCodec(c protocol.Codec) Option {
	return func(cfg *Config) { cfg.Codec = c }
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(cfg *Config) { cfg.Dialer = d }
}

// WithTokenProvider sets the handshake token provider.
func WithTokenProvider(p TokenProvider) Option {
	return func(cfg *Config) { cfg.TokenProvider = p }
}

// WithHeader adds handshake headers.
func WithHeader(h http.Header) Option {
	return func(cfg *Config) { cfg.Header = h }
}

// WithWriteTimeout sets the per-frame write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(cfg *Config) { cfg.WriteTimeout = d }
}

// WithReadLimit sets the maximum inbound frame size.
func WithReadLimit(n int64) Option {
	return func(cfg *Config) { cfg.ReadLimit = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) { cfg.Logger = l }
}

// WithMetrics records transport errors.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(cfg *Config) { cfg.Metrics = m }
}

func defaultConfig() Config {
	return Config{
		Codec:         protocol.JSONCodec{},
		Dialer:        websocket.DefaultDialer,
		TokenProvider: (*nilProvider)(nil),
		WriteTimeout:  DefaultWriteTimeout,
		ReadLimit:     DefaultReadLimit,
		SendBuffer:    DefaultSendBuffer,
		Limits:        protocol.DefaultLimits(),
		Logger:        slog.Default(),
	}
}

// Client is a websocket Transport.
type Client struct {
	cfg       Config
	url       string
	id        string
	conn      *websocket.Conn
	send      chan []byte
	responses chan *protocol.Response
	done      chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
	logger    *slog.Logger
}

// Dial connects to url and starts the read and write loops.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.NewString()
	hdr, err := cfg.TokenProvider.Token(url)
	if err != nil {
		return nil, errors.New("M040").WithDetail("token").Wrap(err)
	}
	if hdr == nil {
		hdr = http.Header{}
	}
	for k, vs := range cfg.Header {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}
	hdr.Set(ClientIDHeader, id)

	conn, _, err := cfg.Dialer.DialContext(ctx, url, hdr)
	if err != nil {
		cfg.TokenProvider.ClearToken(url)
		cfg.Metrics.TransportError(err)
		return nil, errors.New("M040").WithDetail(url).Wrap(err)
	}
	if cfg.ReadLimit > 0 {
		conn.SetReadLimit(cfg.ReadLimit)
	}

	c := &Client{
		cfg:       cfg,
		url:       url,
		id:        id,
		conn:      conn,
		send:      make(chan []byte, cfg.SendBuffer),
		responses: make(chan *protocol.Response, cfg.SendBuffer),
		done:      make(chan struct{}),
		logger:    cfg.Logger.With("transport", "websocket", "client_id", id),
	}
	c.logger.Info("connected", "url", url, "codec", cfg.Codec.Name())

	go c.writeLoop()
	go c.readLoop()
	return c, nil
}

// ID returns the client identifier sent on the handshake.
func (c *Client) ID() string { return c.id }

// Responses implements Transport.
func (c *Client) Responses() <-chan *protocol.Response { return c.responses }

// Done is closed when the connection has shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send implements Transport. It queues the encoded request for the writer.
func (c *Client) Send(ctx context.Context, req *protocol.Request) error {
	frame, err := protocol.EncodeRequest(c.cfg.Codec, req)
	if err != nil {
		return errors.New("M042").WithDetail("encode").Wrap(err)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return errors.New("M042").Wrap(ctx.Err())
	}
}

// Close sends a close frame and shuts the connection down.
func (c *Client) Close() error {
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.shutdown(nil)
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
		c.conn.Close()
		if err != nil {
			c.cfg.Metrics.TransportError(err)
			c.logger.Error("connection closed", "error", err)
		} else {
			c.logger.Info("connection closed")
		}
	})
}

func (c *Client) writeLoop() {
	msgType := websocket.TextMessage
	if c.cfg.Codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case frame := <-c.send:
			if c.cfg.WriteTimeout > 0 {
				c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			}
			if err := c.conn.WriteMessage(msgType, frame); err != nil {
				c.shutdown(errors.New("M042").Wrap(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) readLoop() {
	defer close(c.responses)
	for {
		op, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				c.shutdown(errors.New("M041").Wrap(err))
			} else {
				c.shutdown(nil)
			}
			return
		}
		if op != websocket.TextMessage && op != websocket.BinaryMessage {
			continue
		}
		resp, err := protocol.DecodeResponse(c.cfg.Codec, msg, c.cfg.Limits)
		if err != nil {
			c.cfg.Metrics.TransportError(err)
			c.logger.Warn("dropped frame", "error", err, "bytes", len(msg))
			continue
		}
		select {
		case c.responses <- resp:
		case <-c.done:
			return
		}
	}
}
