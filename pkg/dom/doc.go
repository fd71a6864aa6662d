// Package dom provides the document tree that meld components live in.
//
// A Document is an arena of nodes addressed by NodeID. Parent links are stored
// as indices rather than pointers, so walking to an ancestor is an index chase
// that ends at the document node. Node IDs are never reused: two distinct
// nodes always have distinct IDs, even after one of them has been removed.
//
// # Parsing and Rendering
//
// Markup is parsed with golang.org/x/net/html. Parse builds a full document;
// ParseFragment creates detached nodes in a given context element, which is
// what the reconciler uses for new component markup. Render produces outer
// HTML for any node.
//
// # Form State
//
// Form controls carry properties separate from their attributes, mirroring a
// browser: an input's current value, a checkbox's checked state, an option's
// selected state. They are initialised from attributes when a node is created
// and updated by SetAttr/RemoveAttr of value, checked and selected.
//
// # Events
//
// Listeners are attached to nodes with AddEventListener. Dispatch delivers an
// event to its target and then bubbles it through the ancestors up to the
// document node, honouring StopPropagation.
package dom
