package engine

import (
	"strings"

	"github.com/vango-dev/meld/pkg/binding"
	"github.com/vango-dev/meld/pkg/protocol"
)

// startLoading applies the loading state of every loading element of c. An
// element with a target reacts only when one of actions names it.
func (e *Engine) startLoading(c *Component, actions []protocol.Action) {
	c.loadingActive = true
	for _, el := range c.loadingEls {
		if el.Target != "" && !targets(actions, el.Target) {
			continue
		}
		e.applyLoading(el, true)
		c.loadingOn = append(c.loadingOn, el)
	}
}

// stopLoading reverts what startLoading applied.
func (e *Engine) stopLoading(c *Component) {
	for _, el := range c.loadingOn {
		if e.doc.Valid(el.Node()) {
			e.applyLoading(el, false)
		}
	}
	c.loadingOn = nil
	c.loadingActive = false
}

func (e *Engine) applyLoading(el *binding.Element, on bool) {
	node := el.Node()
	switch el.Loading.Mode {
	case binding.LoadingShow:
		if on {
			e.doc.RemoveAttr(node, "hidden")
		} else {
			e.doc.SetAttr(node, "hidden", "")
		}
	case binding.LoadingHide:
		if on {
			e.doc.SetAttr(node, "hidden", "")
		} else {
			e.doc.RemoveAttr(node, "hidden")
		}
	case binding.LoadingClass, binding.LoadingRemoveClass:
		add := on == (el.Loading.Mode == binding.LoadingClass)
		for _, cls := range strings.Fields(el.Loading.Value) {
			if add {
				e.doc.AddClass(node, cls)
			} else {
				e.doc.RemoveClass(node, cls)
			}
		}
	case binding.LoadingAttr:
		name := el.Loading.Value
		if name == "" {
			name = "disabled"
		}
		if on {
			e.doc.SetAttr(node, name, "")
		} else {
			e.doc.RemoveAttr(node, name)
		}
	}
}

// targets reports whether any action refers to name: a called method, a
// synced model, or a database field.
func targets(actions []protocol.Action, name string) bool {
	for _, a := range actions {
		if in, ok := a.SyncInput(); ok && in.Name == name {
			return true
		}
		if call, ok := a.CallMethod(); ok && call.Name == name {
			return true
		}
		if db, ok := a.DbInput(); ok {
			if db.Model == name || db.DB == name {
				return true
			}
			if _, ok := db.Fields[name]; ok {
				return true
			}
		}
	}
	return false
}
