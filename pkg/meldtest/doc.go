// Package meldtest provides testing helpers for code built on the meld
// engine.
//
// It reduces boilerplate when exercising components end to end by
// providing a WebSocket server that answers requests through a
// transport.Handler, plus markup assertions on a dom.Document.
//
// # Quick Start
//
//	func TestGreeter(t *testing.T) {
//	    srv := meldtest.NewServer(t, func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
//	        return &protocol.Response{ID: req.ID, DOM: `<div meld:id="c1">hi</div>`}, nil
//	    })
//	    client, err := transport.Dial(ctx, srv.URL())
//	    ...
//	    meldtest.ExpectContains(t, doc, root, "hi")
//	}
//
// # Recording Requests
//
// Every decoded request is recorded before the handler runs:
//
//	reqs := srv.Requests()
//	last := srv.WaitRequest(t)
//
// # Assertions
//
//   - ExpectContains: rendered markup contains a substring
//   - ExpectNotContains: rendered markup lacks a substring
//   - ExpectAttribute: an element carries an attribute value
//   - ExpectText: an element's text content equals a value
package meldtest
