// Package errors provides structured, coded errors for meld.
//
// Every error raised by the engine, its transport, or its configuration layer
// carries a short code (e.g. "M020") that maps to a category, a one-line
// message, and a longer explanation.
//
// # Error Categories
//
//   - config: a component or configuration file could not be constructed
//   - protocol: the remote process sent a malformed or error-flagged response
//   - sync: a response was discarded (stale, unknown component)
//   - transport: dialing, reading, or writing the realtime channel failed
//   - cli: command line usage errors
//
// # Usage
//
//	err := errors.New("M001").
//	    WithDetail(`no element carries meld:id="c1"`).
//	    WithSuggestion("Render the component root before mounting it")
//
//	fmt.Fprint(os.Stderr, err.Format())
package errors
