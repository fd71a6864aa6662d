// Package morph reconciles a live dom subtree against new markup in place.
//
// Reconcile parses the new markup next to the old root and morphs the old
// tree into it: attributes and text are updated on existing nodes, children
// are matched by key first and by position second, and unmatched nodes are
// inserted or removed. Matched nodes keep their identity, so listeners and
// form state attached to them survive the update.
//
// Callers control matching through a KeyFunc and can veto updates to a node
// with a SkipFunc (for example, to leave structurally identical nodes alone).
package morph
