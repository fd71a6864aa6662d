package engine

import (
	"github.com/vango-dev/meld/pkg/binding"
	"github.com/vango-dev/meld/pkg/dom"
)

// scan rebuilds the binding indexes of c from its subtree and attaches one
// delegated listener per event type on the root.
func (e *Engine) scan(c *Component) {
	c.scanState = Scanning
	defer func() { c.scanState = Clean }()

	if c.listenerFor != c.root {
		e.detachListeners(c)
		c.listenerFor = c.root
	}

	c.elements = map[dom.NodeID]*binding.Element{}
	c.ordered = nil
	c.keyed = map[string]*binding.Element{}
	c.modelEls = map[string][]*binding.Element{}
	c.dbEls = map[string][]*binding.Element{}
	c.actions = map[string][]actionBinding{}
	c.loadingEls = nil
	c.pollEls = nil

	for _, node := range e.doc.Descendants(c.root) {
		if !e.doc.IsElement(node) {
			continue
		}
		el := binding.New(e.doc, node, c.root, e.cfg.Prefix)
		if !el.Bound {
			continue
		}
		for _, name := range el.Fallbacks {
			c.logger.Debug("numeric argument fell back to default",
				"attribute", name, "node", node)
		}
		c.elements[node] = el
		c.ordered = append(c.ordered, el)
		if el.Key != "" {
			c.keyed[el.Key] = el
		}

		switch el.Role() {
		case binding.RoleDatabase:
			c.dbEls[el.Field.EventType] = append(c.dbEls[el.Field.EventType], el)
			e.delegate(c, el.Field.EventType)
		case binding.RoleModel:
			c.modelEls[el.Model.EventType] = append(c.modelEls[el.Model.EventType], el)
			e.delegate(c, el.Model.EventType)
		case binding.RoleLoading:
			c.loadingEls = append(c.loadingEls, el)
			if el.Loading.Mode == binding.LoadingShow && !c.loadingActive {
				e.doc.SetAttr(node, "hidden", "")
			}
		}

		for _, act := range el.Actions {
			c.actions[act.EventType] = append(c.actions[act.EventType], actionBinding{action: act, element: el})
			e.delegate(c, act.EventType)
		}
		if el.Poll != nil {
			c.pollEls = append(c.pollEls, el)
		}
	}

	e.syncPolls(c)
}

// delegate attaches the root listener for typ once. The set of delegated
// types survives rescans while the root node is unchanged.
func (e *Engine) delegate(c *Component, typ string) {
	if typ == "" {
		return
	}
	if _, ok := c.listeners[typ]; ok {
		return
	}
	c.listeners[typ] = e.doc.AddEventListener(c.root, typ, func(ev *dom.Event) {
		e.handleEvent(c, ev)
	})
}

func (e *Engine) detachListeners(c *Component) {
	for typ, lid := range c.listeners {
		e.doc.RemoveEventListener(c.listenerFor, lid)
		delete(c.listeners, typ)
	}
}
