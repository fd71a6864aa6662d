package binding

import (
	"strconv"
	"strings"
	"time"
)

// DefaultPrefix is the attribute namespace used when none is configured.
const DefaultPrefix = "meld:"

// Kind is the binding type of one attribute.
type Kind uint8

const (
	KindPlain Kind = iota
	KindModel
	KindField
	KindDBName
	KindDBPK
	KindPoll
	KindLoading
	KindTarget
	KindKey
	KindError
	KindAction
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindModel:
		return "model"
	case KindField:
		return "field"
	case KindDBName:
		return "db"
	case KindDBPK:
		return "pk"
	case KindPoll:
		return "poll"
	case KindLoading:
		return "loading"
	case KindTarget:
		return "target"
	case KindKey:
		return "key"
	case KindError:
		return "error"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// Reserved base names never produce an action binding.
var reserved = map[string]bool{
	"id":       true,
	"name":     true,
	"checksum": true,
	"data":     true,
}

// exact names are checked before any prefix match.
var exactKinds = []struct {
	base string
	kind Kind
}{
	{"key", KindKey},
	{"pk", KindDBPK},
}

// prefixKinds are matched in order; first match wins.
var prefixKinds = []struct {
	token string
	kind  Kind
}{
	{"model", KindModel},
	{"field", KindField},
	{"db", KindDBName},
	{"poll", KindPoll},
	{"loading", KindLoading},
	{"target", KindTarget},
	{"error", KindError},
}

// Modifier is one dot-separated suffix token. A token of the form name-arg
// carries an argument; a bare token does not.
type Modifier struct {
	Arg    string
	HasArg bool
}

// Modifiers maps modifier names to their arguments.
type Modifiers map[string]Modifier

// Has reports whether the modifier is present.
func (m Modifiers) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Arg returns the modifier's argument.
func (m Modifiers) Arg(name string) (string, bool) {
	mod, ok := m[name]
	if !ok || !mod.HasArg {
		return "", false
	}
	return mod.Arg, true
}

// Attribute is one classified attribute.
type Attribute struct {
	// Name and Value are the raw attribute.
	Name  string
	Value string

	// Bound is true when the attribute carries the binding prefix.
	Bound bool

	Kind Kind

	// Base is the name with the prefix and modifiers stripped.
	Base string

	// Arg is the argument embedded in the base: the interval of poll-<ms> or
	// the field of error:<field>.
	Arg string

	Modifiers Modifiers

	// Order lists modifier names as they appear in the name.
	Order []string

	// EventType is the triggering event: the base for actions, input or blur
	// for model and field bindings, empty otherwise.
	EventType string
}

// Classify parses one attribute. It has no side effects.
func Classify(prefix, name, value string) Attribute {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	a := Attribute{Name: name, Value: value, Modifiers: Modifiers{}}
	lname := strings.ToLower(name)
	if !strings.HasPrefix(lname, prefix) {
		return a
	}
	a.Bound = true

	parts := strings.Split(lname[len(prefix):], ".")
	a.Base = parts[0]
	for _, tok := range parts[1:] {
		if tok == "" {
			continue
		}
		key, arg, hasArg := strings.Cut(tok, "-")
		if _, seen := a.Modifiers[key]; !seen {
			a.Order = append(a.Order, key)
		}
		a.Modifiers[key] = Modifier{Arg: arg, HasArg: hasArg}
	}

	a.Kind = kindOf(a.Base)
	switch a.Kind {
	case KindModel, KindField:
		a.EventType = "input"
		if a.Modifiers.Has("lazy") {
			a.EventType = "blur"
		}
	case KindPoll:
		_, a.Arg, _ = strings.Cut(a.Base, "-")
	case KindError:
		_, a.Arg, _ = strings.Cut(a.Base, ":")
	case KindAction:
		a.EventType = a.Base
	}
	return a
}

// kindOf applies the precedence list: exact names, then anchored prefix
// tokens (token, token-arg or token:arg), then reserved names, then the
// action fallback. Anchoring keeps events like dblclick out of the db kind.
func kindOf(base string) Kind {
	for _, e := range exactKinds {
		if base == e.base {
			return e.kind
		}
	}
	for _, p := range prefixKinds {
		if base == p.token ||
			strings.HasPrefix(base, p.token+"-") ||
			strings.HasPrefix(base, p.token+":") {
			return p.kind
		}
	}
	if base == "" || reserved[base] {
		return KindPlain
	}
	return KindAction
}

// parseMillis parses a base-10 millisecond count.
func parseMillis(s string) (time.Duration, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}
