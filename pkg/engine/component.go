package engine

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/meld/pkg/binding"
	"github.com/vango-dev/meld/pkg/dom"
	"github.com/vango-dev/meld/pkg/protocol"
)

// ScanState is the scanner state of a component.
type ScanState uint8

const (
	Clean ScanState = iota
	Scanning
)

// String returns the string representation of the ScanState.
func (s ScanState) String() string {
	if s == Scanning {
		return "scanning"
	}
	return "clean"
}

// actionBinding pairs an action with the element that declared it.
type actionBinding struct {
	action  binding.Action
	element *binding.Element
}

type pollTimer struct {
	method   string
	interval time.Duration
	timer    Timer
	gen      uint64
}

// Component is the state of one mounted component. It is owned by the engine
// loop; read it only from there.
type Component struct {
	ID        string
	Name      string
	Qualifier string
	Data      map[string]any

	root dom.NodeID

	elements    map[dom.NodeID]*binding.Element
	ordered     []*binding.Element
	keyed       map[string]*binding.Element
	modelEls    map[string][]*binding.Element
	dbEls       map[string][]*binding.Element
	actions     map[string][]actionBinding
	loadingEls  []*binding.Element
	pollEls     []*binding.Element
	scanState   ScanState
	listenerFor dom.NodeID
	listeners   map[string]dom.ListenerID

	queue           []protocol.Action
	inFlight        bool
	inFlightActions []protocol.Action
	pendingDispatch bool
	timer           Timer
	timerGen        uint64
	polls           map[string]*pollTimer
	loadingActive   bool
	loadingOn       []*binding.Element

	reconciling bool
	orphaned    bool
	sentAt      time.Time
	span        trace.Span

	logger *slog.Logger
}

func newComponent(id, qualifier string, root dom.NodeID, data map[string]any, logger *slog.Logger) *Component {
	if data == nil {
		data = map[string]any{}
	}
	return &Component{
		ID:        id,
		Name:      componentName(qualifier),
		Qualifier: qualifier,
		Data:      data,
		root:      root,
		listeners: map[string]dom.ListenerID{},
		polls:     map[string]*pollTimer{},
		logger:    logger.With("component_id", id),
	}
}

// componentName returns the last dot-segment of a qualifier such as
// "app.components.counter".
func componentName(qualifier string) string {
	if i := strings.LastIndexByte(qualifier, '.'); i >= 0 {
		return qualifier[i+1:]
	}
	return qualifier
}

// Root returns the component's root node.
func (c *Component) Root() dom.NodeID { return c.root }

// Queue returns a copy of the pending actions.
func (c *Component) Queue() []protocol.Action {
	return append([]protocol.Action(nil), c.queue...)
}

// InFlight reports whether a request is awaiting its response.
func (c *Component) InFlight() bool { return c.inFlight }

// PendingDispatch reports whether a dispatch is waiting for the in-flight
// response.
func (c *Component) PendingDispatch() bool { return c.pendingDispatch }

// ScanState returns the scanner state.
func (c *Component) ScanState() ScanState { return c.scanState }

// Orphaned reports whether the root has left the document.
func (c *Component) Orphaned() bool { return c.orphaned }

// Element returns the binding record of node, if it is bound.
func (c *Component) Element(node dom.NodeID) *binding.Element { return c.elements[node] }

// Elements returns the bound elements in document order.
func (c *Component) Elements() []*binding.Element {
	return append([]*binding.Element(nil), c.ordered...)
}

// Keyed returns the element declaring key.
func (c *Component) Keyed(key string) *binding.Element { return c.keyed[key] }

// ModelElements returns the model- and database-bound elements whose model or
// field name is name.
func (c *Component) ModelElements(name string) []*binding.Element {
	var out []*binding.Element
	for _, el := range c.Elements() {
		switch {
		case el.Role() == binding.RoleModel && el.Model.Name == name,
			el.Role() == binding.RoleDatabase && el.Field.Name == name:
			out = append(out, el)
		}
	}
	return out
}

// DelegatedEvents returns the event types with a listener on the root.
func (c *Component) DelegatedEvents() []string {
	out := make([]string, 0, len(c.listeners))
	for typ := range c.listeners {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Info is a read-only view of a component for inspection.
type Info struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Data            map[string]any `json:"data"`
	Queue           []string       `json:"queue"`
	InFlight        bool           `json:"inFlight"`
	PendingDispatch bool           `json:"pendingDispatch"`
	Elements        int            `json:"elements"`
	Keyed           int            `json:"keyed"`
	Events          []string       `json:"events"`
	Orphaned        bool           `json:"orphaned"`
	Markup          string         `json:"markup,omitempty"`
}

func (c *Component) info(doc *dom.Document, withMarkup bool) Info {
	queue := make([]string, 0, len(c.queue))
	for _, a := range c.queue {
		queue = append(queue, a.String())
	}
	in := Info{
		ID:              c.ID,
		Name:            c.Name,
		Data:            protocol.CloneData(c.Data),
		Queue:           queue,
		InFlight:        c.inFlight,
		PendingDispatch: c.pendingDispatch,
		Elements:        len(c.elements),
		Keyed:           len(c.keyed),
		Events:          c.DelegatedEvents(),
		Orphaned:        c.orphaned,
	}
	if withMarkup && doc.Valid(c.root) {
		in.Markup = doc.Render(c.root)
	}
	return in
}
