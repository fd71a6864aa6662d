package dom

import "strings"

// syncAttrProperty mirrors attribute writes onto form properties.
func (d *Document) syncAttrProperty(n *node, name, value string, present bool) {
	switch name {
	case "value":
		if n.tag == "input" || n.tag == "option" {
			n.value = value
		}
	case "checked":
		if n.tag == "input" {
			n.checked = present
		}
	case "selected":
		if n.tag == "option" {
			n.selected = present
		}
	}
}

// initFormState initialises form properties from attributes and content.
// Called once a node's attributes and children are in place.
func (d *Document) initFormState(id NodeID) {
	n := d.get(id)
	if n == nil || n.typ != ElementNode {
		return
	}
	switch n.tag {
	case "input":
		n.value, _ = d.Attr(id, "value")
		n.checked = d.HasAttr(id, "checked")
	case "textarea":
		n.value = d.TextContent(id)
	case "option":
		n.selected = d.HasAttr(id, "selected")
	}
}

// InputType returns the lower-cased control type: the type attribute of an
// input ("text" when absent), "select-one"/"select-multiple" for selects,
// "textarea" for textareas and "" for everything else.
func (d *Document) InputType(id NodeID) string {
	switch d.Tag(id) {
	case "input":
		t := strings.ToLower(strings.TrimSpace(d.AttrOr(id, "type", "text")))
		if t == "" {
			return "text"
		}
		return t
	case "select":
		if d.HasAttr(id, "multiple") {
			return "select-multiple"
		}
		return "select-one"
	case "textarea":
		return "textarea"
	}
	return ""
}

// Value returns the current value property of a control. For options it is
// the value attribute or, when absent, the text content. For selects it is
// the value of the first selected option.
func (d *Document) Value(id NodeID) string {
	n := d.get(id)
	if n == nil {
		return ""
	}
	switch n.tag {
	case "option":
		if v, ok := d.Attr(id, "value"); ok {
			return v
		}
		return strings.TrimSpace(d.TextContent(id))
	case "select":
		opts := d.Options(id)
		for _, o := range opts {
			if d.Selected(o) {
				return d.Value(o)
			}
		}
		if len(opts) > 0 && !d.HasAttr(id, "multiple") {
			return d.Value(opts[0])
		}
		return ""
	}
	return n.value
}

// SetValue assigns the value property. For selects, the options whose value
// equals v become selected and all others unselected.
func (d *Document) SetValue(id NodeID, v string) {
	n := d.get(id)
	if n == nil {
		return
	}
	if n.tag == "select" {
		for _, o := range d.Options(id) {
			d.SetSelected(o, d.Value(o) == v)
		}
		return
	}
	n.value = v
}

// Checked returns the checked property of an input.
func (d *Document) Checked(id NodeID) bool {
	if n := d.get(id); n != nil {
		return n.checked
	}
	return false
}

// SetChecked sets the checked property of an input.
func (d *Document) SetChecked(id NodeID, checked bool) {
	if n := d.get(id); n != nil {
		n.checked = checked
	}
}

// Selected returns the selected property of an option.
func (d *Document) Selected(id NodeID) bool {
	if n := d.get(id); n != nil {
		return n.selected
	}
	return false
}

// SetSelected sets the selected property of an option.
func (d *Document) SetSelected(id NodeID, selected bool) {
	if n := d.get(id); n != nil {
		n.selected = selected
	}
}

// Options returns the option elements of a select in document order,
// including those inside optgroups.
func (d *Document) Options(id NodeID) []NodeID {
	var out []NodeID
	d.Walk(id, func(n NodeID) bool {
		if n != id && d.Tag(n) == "option" {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// CopyFormState copies the form properties of src onto dst.
func (d *Document) CopyFormState(dst, src NodeID) {
	a, b := d.get(dst), d.get(src)
	if a == nil || b == nil {
		return
	}
	a.value = b.value
	a.checked = b.checked
	a.selected = b.selected
}
