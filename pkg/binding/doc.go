// Package binding interprets meld's declarative attribute grammar.
//
// An attribute has the form prefix:base[.modifier[-arg]]*, for example
//
//	meld:model.lazy="name"
//	meld:click.prevent.debounce-500="save"
//	meld:keyup.enter="search"
//	meld:poll-5000="refresh"
//	meld:loading.class="spinning"
//
// Classify turns one attribute into an Attribute with exactly one Kind.
// Element aggregates the attributes of one node into the binding record the
// engine works with: model, field, db, poll, loading, target, key, errors and
// an ordered list of actions.
package binding
