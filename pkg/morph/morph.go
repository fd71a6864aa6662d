package morph

import (
	"fmt"

	"github.com/vango-dev/meld/pkg/dom"
)

// KeyFunc returns a node's reconciliation key, or "" for positional matching.
type KeyFunc func(d *dom.Document, id dom.NodeID) string

// SkipFunc reports whether the update of from to match to should be skipped.
type SkipFunc func(d *dom.Document, from, to dom.NodeID) bool

// Stats counts the mutations performed by one reconciliation.
type Stats struct {
	Updated  int // nodes whose attributes or text changed
	Inserted int // new nodes inserted
	Removed  int // old nodes removed
	Moved    int // matched nodes that changed position
	Skipped  int // nodes left untouched by the SkipFunc
}

// Changed reports whether the tree was mutated.
func (s Stats) Changed() bool {
	return s.Updated+s.Inserted+s.Removed+s.Moved > 0
}

// Reconcile morphs the subtree at root to match markup and returns the
// resulting root. The root keeps its identity unless the new markup's root
// element has a different tag or key, in which case it is replaced.
func Reconcile(d *dom.Document, root dom.NodeID, markup string, key KeyFunc, skip SkipFunc) (dom.NodeID, error) {
	newRoot, _, err := ReconcileStats(d, root, markup, key, skip)
	return newRoot, err
}

// ReconcileStats is Reconcile that also reports what changed.
func ReconcileStats(d *dom.Document, root dom.NodeID, markup string, key KeyFunc, skip SkipFunc) (dom.NodeID, Stats, error) {
	var st Stats
	if !d.IsElement(root) {
		return dom.Nil, st, fmt.Errorf("morph: root %d is not an element", root)
	}

	context := "body"
	if p := d.Parent(root); d.IsElement(p) {
		context = d.Tag(p)
	}
	nodes, err := d.ParseFragment(markup, context)
	if err != nil {
		return dom.Nil, st, err
	}
	to := dom.Nil
	for _, n := range nodes {
		if d.IsElement(n) {
			to = n
			break
		}
	}
	if to == dom.Nil {
		return dom.Nil, st, fmt.Errorf("morph: markup has no root element")
	}

	m := &morpher{d: d, key: key, skip: skip, stats: &st}
	if d.Tag(root) != d.Tag(to) || !m.keysCompatible(root, to) {
		if d.Parent(root) == dom.Nil {
			return dom.Nil, st, fmt.Errorf("morph: cannot replace detached root %d", root)
		}
		if err := d.ReplaceChild(root, to); err != nil {
			return dom.Nil, st, err
		}
		st.Removed++
		st.Inserted++
		return to, st, nil
	}
	m.morphNode(root, to)
	return root, st, nil
}

type morpher struct {
	d     *dom.Document
	key   KeyFunc
	skip  SkipFunc
	stats *Stats
}

func (m *morpher) keyOf(id dom.NodeID) string {
	if m.key == nil || !m.d.IsElement(id) {
		return ""
	}
	return m.key(m.d, id)
}

func (m *morpher) keysCompatible(a, b dom.NodeID) bool {
	ka, kb := m.keyOf(a), m.keyOf(b)
	return ka == "" || kb == "" || ka == kb
}

// morphNode updates from in place to match to. Both nodes have the same type
// and, for elements, the same tag.
func (m *morpher) morphNode(from, to dom.NodeID) {
	if m.skip != nil && m.skip(m.d, from, to) {
		m.stats.Skipped++
		return
	}
	d := m.d
	switch d.Type(from) {
	case dom.TextNode, dom.CommentNode:
		if d.Data(from) != d.Data(to) {
			d.SetData(from, d.Data(to))
			m.stats.Updated++
		}
		return
	}

	if m.morphAttrs(from, to) {
		m.stats.Updated++
	}
	switch d.Tag(from) {
	case "input", "option", "textarea":
		d.CopyFormState(from, to)
	}
	m.morphChildren(from, to)
}

func (m *morpher) morphAttrs(from, to dom.NodeID) bool {
	d := m.d
	changed := false
	for _, a := range d.Attrs(from) {
		if !d.HasAttr(to, a.Name) {
			d.RemoveAttr(from, a.Name)
			changed = true
		}
	}
	for _, a := range d.Attrs(to) {
		if v, ok := d.Attr(from, a.Name); !ok || v != a.Value {
			d.SetAttr(from, a.Name, a.Value)
			changed = true
		}
	}
	return changed
}

func (m *morpher) compatible(from, to dom.NodeID) bool {
	d := m.d
	if d.Type(from) != d.Type(to) {
		return false
	}
	if d.IsElement(from) && d.Tag(from) != d.Tag(to) {
		return false
	}
	return true
}

// morphChildren matches to's children against from's: keyed children by key,
// unkeyed children by the next compatible unkeyed sibling. Matched children
// are morphed and moved into place; the rest are inserted or removed.
func (m *morpher) morphChildren(fromParent, toParent dom.NodeID) {
	d := m.d
	fromKids := d.Children(fromParent)
	toKids := d.Children(toParent)

	keyed := make(map[string]dom.NodeID)
	for _, c := range fromKids {
		if k := m.keyOf(c); k != "" {
			if _, dup := keyed[k]; !dup {
				keyed[k] = c
			}
		}
	}
	used := make(map[dom.NodeID]bool, len(fromKids))
	origIndex := make(map[dom.NodeID]int, len(fromKids))
	for i, c := range fromKids {
		origIndex[c] = i
	}

	cursor := 0
	for i, to := range toKids {
		match := dom.Nil
		if k := m.keyOf(to); k != "" {
			if c, ok := keyed[k]; ok && !used[c] && m.compatible(c, to) {
				match = c
			}
		} else {
			for j := cursor; j < len(fromKids); j++ {
				c := fromKids[j]
				if used[c] || m.keyOf(c) != "" || !m.compatible(c, to) {
					continue
				}
				match = c
				cursor = j + 1
				break
			}
		}

		placed := to
		if match != dom.Nil {
			used[match] = true
			m.morphNode(match, to)
			placed = match
			if origIndex[match] != i {
				m.stats.Moved++
			}
		} else {
			m.stats.Inserted++
		}

		ref := childAt(d, fromParent, i)
		if ref != placed {
			d.InsertBefore(fromParent, placed, ref)
		}
	}

	for _, c := range d.Children(fromParent)[len(toKids):] {
		d.Detach(c)
		m.stats.Removed++
	}
}

func childAt(d *dom.Document, parent dom.NodeID, i int) dom.NodeID {
	kids := d.Children(parent)
	if i < len(kids) {
		return kids[i]
	}
	return dom.Nil
}
