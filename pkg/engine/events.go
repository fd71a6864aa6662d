package engine

import (
	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/binding"
	"github.com/vango-dev/meld/pkg/dom"
	"github.com/vango-dev/meld/pkg/protocol"
)

// handleEvent is the delegated root listener of c.
func (e *Engine) handleEvent(c *Component, ev *dom.Event) {
	if c.reconciling || c.orphaned {
		return
	}

	for _, el := range c.modelEls[ev.Type] {
		if el.Node() == ev.Target {
			e.syncModel(c, el, false)
		}
	}
	for _, el := range c.dbEls[ev.Type] {
		if el.Node() == ev.Target {
			e.syncDB(c, el, false)
		}
	}

	bindings := c.actions[ev.Type]
	if len(bindings) == 0 {
		return
	}
	resolved := binding.Resolve(e.doc, ev.Target, c.root, e.cfg.Prefix)
	if resolved == nil {
		return
	}
	for _, b := range bindings {
		if !b.element.IsSame(resolved) {
			continue
		}
		e.flushLazy(c, b.element)
		if b.action.PreventDefault {
			ev.PreventDefault()
		}
		if b.action.StopPropagation {
			ev.StopPropagation()
		}

		src := Source{Debounce: b.action.Debounce, HasDebounce: b.action.HasDebounce}
		if !src.HasDebounce && b.element.Model != nil {
			src.Debounce, src.HasDebounce = b.element.Model.Debounce, b.element.Model.HasDebounce
		}
		// The key filter gates only the call; flushed values still go out.
		if !b.action.MatchesKey(ev.Key) {
			if len(c.queue) > 0 {
				e.scheduleDispatch(c, src.debounce(e.cfg.Debounce))
			}
			continue
		}
		e.Enqueue(c, protocol.NewCallMethod(b.action.Name, nil, b.element.Key), src)
	}
}

// syncModel queues the value of a model-bound element. A flush appends
// without scheduling; the action that triggered it schedules the dispatch.
func (e *Engine) syncModel(c *Component, el *binding.Element, flush bool) {
	a := protocol.NewSyncInput(el.Model.Name, el.GetValue())
	if flush {
		e.push(c, a)
		return
	}
	e.Enqueue(c, a, Source{
		Defer:       el.Model.IsDefer,
		Debounce:    el.Model.Debounce,
		HasDebounce: el.Model.HasDebounce,
	})
}

// syncDB queues a database field update. The record name and primary key
// fall back to the nearest ancestor declaring them.
func (e *Engine) syncDB(c *Component, el *binding.Element, flush bool) {
	var db binding.DB
	if el.DB != nil {
		db = *el.DB
	}
	for anc := el.NearestBoundAncestor(); anc != nil && (db.Name == "" || db.PK == ""); anc = anc.NearestBoundAncestor() {
		if anc.DB == nil {
			continue
		}
		if db.Name == "" {
			db.Name = anc.DB.Name
		}
		if db.PK == "" {
			db.PK = anc.DB.PK
		}
	}
	model := ""
	if el.Model != nil {
		model = el.Model.Name
	}
	a := protocol.NewDbInput(model, db.Name, db.PK, map[string]any{
		el.Field.Name: el.GetValue(),
	})
	if flush {
		e.push(c, a)
		return
	}
	e.Enqueue(c, a, Source{
		Debounce:    el.Field.Debounce,
		HasDebounce: el.Field.HasDebounce,
	})
}

// flushLazy queues the current values of lazy model and database elements
// inside the subtree of an action element.
func (e *Engine) flushLazy(c *Component, action *binding.Element) {
	for _, el := range c.Elements() {
		if !e.doc.Contains(action.Node(), el.Node()) {
			continue
		}
		switch el.Role() {
		case binding.RoleModel:
			if el.Model.IsLazy {
				e.syncModel(c, el, true)
			}
		case binding.RoleDatabase:
			if el.Field.IsLazy {
				e.syncDB(c, el, true)
			}
		}
	}
}

func (e *Engine) push(c *Component, a protocol.Action) {
	c.queue = append(c.queue, a)
	e.cfg.Metrics.ActionQueued(string(a.Type()))
}

// EventSpec describes an injected user interaction.
type EventSpec struct {
	// Type is the event type. It defaults to the bound event of a model
	// target and to "click" otherwise.
	Type string `json:"type"`

	// Exactly one of TargetID, Key and Model selects the target: the
	// element's id attribute, its key binding, or its model name.
	TargetID string `json:"target,omitempty"`
	Key      string `json:"key,omitempty"`
	Model    string `json:"model,omitempty"`

	// Value, when set, is written into the control before the event fires.
	Value    any  `json:"value,omitempty"`
	HasValue bool `json:"-"`

	// KeyName is the keyboard key for key events.
	KeyName string `json:"keyName,omitempty"`
}

// TriggerEvent dispatches a synthetic event inside component id as if the
// user had produced it. It reports whether the default action was
// prevented.
func (e *Engine) TriggerEvent(id string, spec EventSpec) (bool, error) {
	c := e.registry.Get(id)
	if c == nil {
		return false, errors.New("M031").WithDetail(id)
	}

	var el *binding.Element
	switch {
	case spec.TargetID != "":
		if node := e.doc.FindByAttr(c.root, "id", spec.TargetID); node != dom.Nil {
			el = binding.New(e.doc, node, c.root, e.cfg.Prefix)
		}
	case spec.Key != "":
		el = c.keyed[spec.Key]
	case spec.Model != "":
		if els := c.ModelElements(spec.Model); len(els) > 0 {
			el = els[0]
		}
	}
	if el == nil {
		return false, errors.New("M032").WithDetailf("%s: %+v", id, spec)
	}

	typ := spec.Type
	if typ == "" {
		switch {
		case el.Model != nil:
			typ = el.Model.EventType
		case el.Field != nil:
			typ = el.Field.EventType
		default:
			typ = "click"
		}
	}
	if spec.HasValue {
		el.SetValue(spec.Value)
	}
	ev := dom.NewKeyEvent(typ, el.Node(), spec.KeyName)
	return !e.doc.Dispatch(ev), nil
}
