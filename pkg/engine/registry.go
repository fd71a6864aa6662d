package engine

import (
	"github.com/vango-dev/meld/internal/errors"
	"github.com/vango-dev/meld/pkg/dom"
)

// Registry maps component ids to components. It is owned by one Engine and
// is not safe for concurrent use.
type Registry struct {
	components map[string]*Component
	order      []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{components: map[string]*Component{}}
}

// Add registers c. Ids must be unique.
func (r *Registry) Add(c *Component) error {
	if _, ok := r.components[c.ID]; ok {
		return errors.New("M002").WithDetail(c.ID)
	}
	r.components[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

// Get returns the component with id, or nil.
func (r *Registry) Get(id string) *Component {
	return r.components[id]
}

// Remove unregisters id.
func (r *Registry) Remove(id string) {
	if _, ok := r.components[id]; !ok {
		return
	}
	delete(r.components, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// All returns the components in mount order.
func (r *Registry) All() []*Component {
	out := make([]*Component, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.components[id])
	}
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int { return len(r.components) }

// Prune removes and returns the components whose root has left doc.
func (r *Registry) Prune(doc *dom.Document) []*Component {
	var removed []*Component
	for _, c := range r.All() {
		if !doc.IsConnected(c.root) {
			c.orphaned = true
			removed = append(removed, c)
			r.Remove(c.ID)
		}
	}
	return removed
}
