package binding

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/meld/pkg/dom"
)

// Model describes a model or field binding.
type Model struct {
	Name      string
	EventType string
	IsLazy    bool
	IsDefer   bool

	// Debounce is only meaningful when HasDebounce is set.
	Debounce    time.Duration
	HasDebounce bool
}

// DB names a database record binding.
type DB struct {
	Name string
	PK   string
}

// Poll describes a repeating server call. A zero Interval means the engine
// default.
type Poll struct {
	Method   string
	Interval time.Duration
}

// LoadingMode is how a loading element reacts to a round trip.
type LoadingMode uint8

const (
	LoadingShow LoadingMode = iota
	LoadingHide
	LoadingClass
	LoadingRemoveClass
	LoadingAttr
)

// String returns the string representation of the LoadingMode.
func (m LoadingMode) String() string {
	switch m {
	case LoadingShow:
		return "show"
	case LoadingHide:
		return "hide"
	case LoadingClass:
		return "class"
	case LoadingRemoveClass:
		return "removeClass"
	case LoadingAttr:
		return "attr"
	default:
		return "unknown"
	}
}

// Loading describes a loading-state binding.
type Loading struct {
	Mode  LoadingMode
	Value string
}

// Action is one event-triggered server method call.
type Action struct {
	Name            string
	EventType       string
	PreventDefault  bool
	StopPropagation bool
	KeyFilter       string

	Debounce    time.Duration
	HasDebounce bool
}

// MatchesKey reports whether a key event passes the action's key filter.
// With several bare tokens the last one is the filter.
func (a *Action) MatchesKey(key string) bool {
	return a.KeyFilter == "" || strings.ToLower(key) == a.KeyFilter
}

// Role is the scanner's classification of an element.
type Role uint8

const (
	RoleNone Role = iota
	RoleDatabase
	RoleModel
	RoleLoading
	RoleAction
)

// String returns the string representation of the Role.
func (r Role) String() string {
	switch r {
	case RoleDatabase:
		return "database"
	case RoleModel:
		return "model"
	case RoleLoading:
		return "loading"
	case RoleAction:
		return "action"
	default:
		return "none"
	}
}

// Element is the binding record of one node.
type Element struct {
	doc      *dom.Document
	node     dom.NodeID
	boundary dom.NodeID
	prefix   string

	Attributes []Attribute

	// Bound is set when any attribute carries the prefix.
	Bound bool

	Model   *Model
	Field   *Model
	DB      *DB
	Poll    *Poll
	Loading *Loading
	Target  string
	Key     string
	Errors  []string
	Actions []Action

	// Fallbacks lists attributes whose numeric argument did not parse and
	// was replaced by the default.
	Fallbacks []string
}

// New builds the binding record of node. boundary is the component root:
// ancestor lookups stop there. Pass dom.Nil for no boundary.
func New(doc *dom.Document, node, boundary dom.NodeID, prefix string) *Element {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	e := &Element{doc: doc, node: node, boundary: boundary, prefix: prefix}
	for _, attr := range doc.Attrs(node) {
		a := Classify(prefix, attr.Name, attr.Value)
		e.Attributes = append(e.Attributes, a)
		if a.Bound {
			e.Bound = true
			e.apply(a)
		}
	}
	return e
}

func (e *Element) apply(a Attribute) {
	switch a.Kind {
	case KindModel:
		e.Model = e.model(a)
	case KindField:
		e.Field = e.model(a)
	case KindDBName:
		if e.DB == nil {
			e.DB = &DB{}
		}
		e.DB.Name = a.Value
	case KindDBPK:
		if e.DB == nil {
			e.DB = &DB{}
		}
		e.DB.PK = a.Value
	case KindPoll:
		p := &Poll{Method: a.Value}
		if a.Arg != "" {
			if d, ok := parseMillis(a.Arg); ok {
				p.Interval = d
			} else {
				e.Fallbacks = append(e.Fallbacks, a.Name)
			}
		}
		e.Poll = p
	case KindLoading:
		l := &Loading{Mode: LoadingShow, Value: a.Value}
		switch {
		case a.Modifiers.Has("class") && a.Modifiers.Has("remove"):
			l.Mode = LoadingRemoveClass
		case a.Modifiers.Has("class"):
			l.Mode = LoadingClass
		case a.Modifiers.Has("attr"):
			l.Mode = LoadingAttr
		case a.Modifiers.Has("remove"):
			l.Mode = LoadingHide
		}
		e.Loading = l
	case KindTarget:
		e.Target = a.Value
	case KindKey:
		e.Key = a.Value
	case KindError:
		if a.Arg != "" {
			e.Errors = append(e.Errors, a.Arg)
		}
	case KindAction:
		act := Action{Name: a.Value, EventType: a.EventType}
		for _, name := range a.Order {
			mod := a.Modifiers[name]
			switch name {
			case "prevent":
				act.PreventDefault = true
			case "stop":
				act.StopPropagation = true
			case "debounce":
				act.Debounce, act.HasDebounce = e.debounce(a, mod)
			default:
				if !mod.HasArg {
					act.KeyFilter = name
				}
			}
		}
		e.Actions = append(e.Actions, act)
	}
}

func (e *Element) model(a Attribute) *Model {
	m := &Model{
		Name:      a.Value,
		EventType: a.EventType,
		IsLazy:    a.Modifiers.Has("lazy"),
		IsDefer:   a.Modifiers.Has("defer"),
	}
	if mod, ok := a.Modifiers["debounce"]; ok {
		m.Debounce, m.HasDebounce = e.debounce(a, mod)
	}
	return m
}

// debounce parses a debounce modifier. A bare or malformed modifier falls
// back to the engine default.
func (e *Element) debounce(a Attribute, mod Modifier) (time.Duration, bool) {
	if !mod.HasArg {
		return 0, false
	}
	d, ok := parseMillis(mod.Arg)
	if !ok {
		e.Fallbacks = append(e.Fallbacks, a.Name)
		return 0, false
	}
	return d, true
}

// Doc returns the document the element lives in.
func (e *Element) Doc() *dom.Document { return e.doc }

// Node returns the wrapped node.
func (e *Element) Node() dom.NodeID { return e.node }

// Prefix returns the attribute prefix the element was classified with.
func (e *Element) Prefix() string { return e.prefix }

// IsSame compares node identity.
func (e *Element) IsSame(other *Element) bool {
	if e == nil || other == nil {
		return false
	}
	return e.doc == other.doc && e.node == other.node
}

// Role classifies the element for the scanner. Database binding wins over
// model binding.
func (e *Element) Role() Role {
	switch {
	case e.Field != nil && (e.DB != nil || e.Model != nil):
		return RoleDatabase
	case e.Model != nil && e.DB == nil && e.Field == nil:
		return RoleModel
	case e.Loading != nil:
		return RoleLoading
	case len(e.Actions) > 0:
		return RoleAction
	default:
		return RoleNone
	}
}

// NearestBoundAncestor returns the closest ancestor carrying a bound
// attribute. It returns nil when the walk reaches the boundary or the top of
// the document.
func (e *Element) NearestBoundAncestor() *Element {
	return nearestBound(e.doc, e.doc.Parent(e.node), e.boundary, e.prefix)
}

// Resolve returns the binding record of node itself if it is bound, or of its
// nearest bound ancestor below boundary.
func Resolve(doc *dom.Document, node, boundary dom.NodeID, prefix string) *Element {
	return nearestBound(doc, node, boundary, prefix)
}

func nearestBound(doc *dom.Document, id, boundary dom.NodeID, prefix string) *Element {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	for ; id != dom.Nil && id != boundary; id = doc.Parent(id) {
		if !doc.IsElement(id) {
			continue
		}
		if hasBoundAttr(doc, id, prefix) {
			return New(doc, id, boundary, prefix)
		}
	}
	return nil
}

func hasBoundAttr(doc *dom.Document, id dom.NodeID, prefix string) bool {
	for _, a := range doc.Attrs(id) {
		if strings.HasPrefix(strings.ToLower(a.Name), prefix) {
			return true
		}
	}
	return false
}

// GetValue extracts the control's current value.
func (e *Element) GetValue() any {
	switch e.doc.InputType(e.node) {
	case "checkbox":
		return e.doc.Checked(e.node)
	case "select-multiple":
		values := []string{}
		for _, opt := range e.doc.Options(e.node) {
			if e.doc.Selected(opt) {
				values = append(values, e.doc.Value(opt))
			}
		}
		return values
	default:
		return e.doc.Value(e.node)
	}
}

// SetValue assigns v to the control.
func (e *Element) SetValue(v any) {
	switch e.doc.InputType(e.node) {
	case "radio":
		e.doc.SetChecked(e.node, e.doc.AttrOr(e.node, "value", "on") == Stringify(v))
	case "checkbox":
		e.doc.SetChecked(e.node, Truthy(v))
	case "select-multiple":
		want := map[string]bool{}
		for _, s := range stringList(v) {
			want[s] = true
		}
		for _, opt := range e.doc.Options(e.node) {
			e.doc.SetSelected(opt, want[e.doc.Value(opt)])
		}
	default:
		e.doc.SetValue(e.node, Stringify(v))
	}
}

// Stringify renders a data value the way it appears in a form control.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// Truthy reports whether v counts as set.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "false"
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	default:
		return true
	}
}

func stringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			out = append(out, Stringify(item))
		}
		return out
	case nil:
		return nil
	default:
		return []string{Stringify(x)}
	}
}
