// Package transport carries protocol requests to the process that renders
// meld components and delivers its responses back to the engine.
//
// Client is a websocket transport built on gorilla/websocket. A reader
// goroutine decodes inbound frames onto the Responses channel and a writer
// goroutine drains outbound frames, so the engine only ever talks to the
// connection through channels.
//
//	c, err := transport.Dial(ctx, "ws://localhost:8000/meld",
//	    transport.WithCodec(protocol.MsgpackCodec{}),
//	    transport.WithTokenProvider(tokens),
//	)
//
// Loopback runs a Handler in process and is used by tests and by embedders
// that render components in the same binary.
package transport
