// Package engine keeps server-rendered components in sync with the server.
//
// An Engine scans each component's subtree for bound attributes, turns user
// interactions into a debounced queue of actions, sends the queue over a
// Transport and morphs the returned markup back into the document:
//
//	doc, _ := dom.ParseString(page)
//	eng := engine.New(doc, client, engine.WithLogger(logger))
//	if _, err := eng.MountAll(); err != nil {
//	    return err
//	}
//	return eng.Run(ctx)
//
// At most one request per component is in flight. Actions queued while a
// request is in flight make its response stale: it is discarded and the
// queue is sent once the debounce window closes.
package engine
