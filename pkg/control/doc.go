// Package control exposes a running engine over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /components                       list components
//	GET  /components/{id}?markup=1         one component, optionally with markup
//	POST /components/{id}/events           inject an event (engine.EventSpec)
//	POST /components/{id}/call             {"method": "...", "args": [...]}
//	POST /snapshots                        checkpoint every component
//	POST /components/{id}/restore          restore one component
//	POST /prune                            drop components whose root left the page
//	GET  /metrics                          Prometheus metrics
//
// Every handler reaches component state through Engine.Do, so requests are
// serialised with the engine loop.
package control
