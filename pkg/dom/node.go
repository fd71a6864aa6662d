package dom

import (
	"fmt"
	"strings"
)

// NodeID identifies a node within a Document. The zero value is Nil.
type NodeID int32

// Nil is the absent node.
const Nil NodeID = 0

// NodeType is the node type discriminator.
type NodeType uint8

const (
	DocumentNode NodeType = iota + 1
	ElementNode
	TextNode
	CommentNode
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "Document"
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	default:
		return "Unknown"
	}
}

// Attr is a single element attribute. Names are stored lower-cased.
type Attr struct {
	Name  string
	Value string
}

type node struct {
	typ      NodeType
	tag      string
	data     string
	attrs    []Attr
	parent   NodeID
	children []NodeID

	// form control properties
	value    string
	checked  bool
	selected bool
}

// Document is an arena-backed node tree. It is not safe for concurrent use;
// callers serialise access (meld runs everything on a single event loop).
type Document struct {
	nodes     []node
	root      NodeID
	listeners map[NodeID]map[string][]listenerEntry
	nextLID   ListenerID
}

// New creates an empty document holding only the document node.
func New() *Document {
	d := &Document{
		nodes:     make([]node, 1, 64), // index 0 is Nil
		listeners: make(map[NodeID]map[string][]listenerEntry),
	}
	d.root = d.alloc(node{typ: DocumentNode})
	return d
}

func (d *Document) alloc(n node) NodeID {
	d.nodes = append(d.nodes, n)
	return NodeID(len(d.nodes) - 1)
}

func (d *Document) get(id NodeID) *node {
	if id <= Nil || int(id) >= len(d.nodes) {
		return nil
	}
	return &d.nodes[id]
}

// Root returns the document node.
func (d *Document) Root() NodeID {
	return d.root
}

// Valid reports whether id names a node of this document.
func (d *Document) Valid(id NodeID) bool {
	return d.get(id) != nil
}

// Len returns the number of nodes ever allocated, including detached ones.
func (d *Document) Len() int {
	return len(d.nodes) - 1
}

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) NodeID {
	return d.alloc(node{typ: ElementNode, tag: strings.ToLower(tag)})
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) NodeID {
	return d.alloc(node{typ: TextNode, data: text})
}

// CreateComment creates a detached comment node.
func (d *Document) CreateComment(text string) NodeID {
	return d.alloc(node{typ: CommentNode, data: text})
}

// Type returns the node's type, or 0 for an invalid id.
func (d *Document) Type(id NodeID) NodeType {
	if n := d.get(id); n != nil {
		return n.typ
	}
	return 0
}

// IsElement reports whether id is an element.
func (d *Document) IsElement(id NodeID) bool {
	return d.Type(id) == ElementNode
}

// Tag returns the lower-cased tag name of an element.
func (d *Document) Tag(id NodeID) string {
	if n := d.get(id); n != nil {
		return n.tag
	}
	return ""
}

// Data returns the character data of a text or comment node.
func (d *Document) Data(id NodeID) string {
	if n := d.get(id); n != nil {
		return n.data
	}
	return ""
}

// SetData replaces the character data of a text or comment node.
func (d *Document) SetData(id NodeID, data string) {
	if n := d.get(id); n != nil && (n.typ == TextNode || n.typ == CommentNode) {
		n.data = data
	}
}

// Parent returns the parent of id, or Nil when detached or the document node.
func (d *Document) Parent(id NodeID) NodeID {
	if n := d.get(id); n != nil {
		return n.parent
	}
	return Nil
}

// Children returns a copy of id's child list.
func (d *Document) Children(id NodeID) []NodeID {
	n := d.get(id)
	if n == nil || len(n.children) == 0 {
		return nil
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of children of id.
func (d *Document) ChildCount(id NodeID) int {
	if n := d.get(id); n != nil {
		return len(n.children)
	}
	return 0
}

// Attr returns the value of the named attribute.
func (d *Document) Attr(id NodeID, name string) (string, bool) {
	n := d.get(id)
	if n == nil {
		return "", false
	}
	name = strings.ToLower(name)
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when it is absent.
func (d *Document) AttrOr(id NodeID, name, def string) string {
	if v, ok := d.Attr(id, name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the named attribute is present.
func (d *Document) HasAttr(id NodeID, name string) bool {
	_, ok := d.Attr(id, name)
	return ok
}

// Attrs returns a copy of the element's attributes in document order.
func (d *Document) Attrs(id NodeID) []Attr {
	n := d.get(id)
	if n == nil || len(n.attrs) == 0 {
		return nil
	}
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// SetAttr sets an attribute, keeping the position of an existing one.
// Setting value, checked or selected also updates the matching form property.
func (d *Document) SetAttr(id NodeID, name, value string) {
	n := d.get(id)
	if n == nil || n.typ != ElementNode {
		return
	}
	name = strings.ToLower(name)
	found := false
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			found = true
			break
		}
	}
	if !found {
		n.attrs = append(n.attrs, Attr{Name: name, Value: value})
	}
	d.syncAttrProperty(n, name, value, true)
}

// RemoveAttr removes an attribute if present.
func (d *Document) RemoveAttr(id NodeID, name string) {
	n := d.get(id)
	if n == nil {
		return
	}
	name = strings.ToLower(name)
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			d.syncAttrProperty(n, name, "", false)
			return
		}
	}
}

// ElementID returns the element's id attribute.
func (d *Document) ElementID(id NodeID) string {
	v, _ := d.Attr(id, "id")
	return v
}

// HasClass reports whether the class attribute contains cls.
func (d *Document) HasClass(id NodeID, cls string) bool {
	v, _ := d.Attr(id, "class")
	for _, c := range strings.Fields(v) {
		if c == cls {
			return true
		}
	}
	return false
}

// AddClass adds cls to the class attribute.
func (d *Document) AddClass(id NodeID, cls string) {
	if cls == "" || d.HasClass(id, cls) {
		return
	}
	v, _ := d.Attr(id, "class")
	d.SetAttr(id, "class", strings.TrimSpace(v+" "+cls))
}

// RemoveClass removes cls from the class attribute.
func (d *Document) RemoveClass(id NodeID, cls string) {
	v, ok := d.Attr(id, "class")
	if !ok {
		return
	}
	var kept []string
	for _, c := range strings.Fields(v) {
		if c != cls {
			kept = append(kept, c)
		}
	}
	d.SetAttr(id, "class", strings.Join(kept, " "))
}

// AppendChild appends child to parent, detaching it from any previous parent.
func (d *Document) AppendChild(parent, child NodeID) error {
	return d.InsertBefore(parent, child, Nil)
}

// InsertBefore inserts child into parent before ref. A Nil ref appends.
func (d *Document) InsertBefore(parent, child, ref NodeID) error {
	p, c := d.get(parent), d.get(child)
	if p == nil || c == nil {
		return fmt.Errorf("dom: insert %d into %d: invalid node", child, parent)
	}
	if child == parent || d.Contains(child, parent) {
		return fmt.Errorf("dom: insert %d into %d: would create a cycle", child, parent)
	}
	if c.typ == DocumentNode {
		return fmt.Errorf("dom: document node cannot be a child")
	}
	if ref == child {
		return nil
	}
	d.Detach(child)

	p = d.get(parent)
	idx := len(p.children)
	if ref != Nil {
		idx = d.indexOf(parent, ref)
		if idx < 0 {
			return fmt.Errorf("dom: reference node %d is not a child of %d", ref, parent)
		}
	}
	p.children = append(p.children, Nil)
	copy(p.children[idx+1:], p.children[idx:])
	p.children[idx] = child
	d.get(child).parent = parent
	return nil
}

// ReplaceChild replaces old with repl under old's parent.
func (d *Document) ReplaceChild(old, repl NodeID) error {
	parent := d.Parent(old)
	if parent == Nil {
		return fmt.Errorf("dom: replace %d: node is detached", old)
	}
	if err := d.InsertBefore(parent, repl, old); err != nil {
		return err
	}
	d.Detach(old)
	return nil
}

// Detach removes id from its parent. The node and its subtree stay valid and
// keep their listeners.
func (d *Document) Detach(id NodeID) {
	n := d.get(id)
	if n == nil || n.parent == Nil {
		return
	}
	p := d.get(n.parent)
	if i := d.indexOf(n.parent, id); i >= 0 {
		p.children = append(p.children[:i], p.children[i+1:]...)
	}
	n.parent = Nil
}

func (d *Document) indexOf(parent, child NodeID) int {
	p := d.get(parent)
	if p == nil {
		return -1
	}
	for i, c := range p.children {
		if c == child {
			return i
		}
	}
	return -1
}

// Index returns the position of id among its siblings, or -1.
func (d *Document) Index(id NodeID) int {
	return d.indexOf(d.Parent(id), id)
}

// Contains reports whether id is ancestor or a descendant of ancestor.
func (d *Document) Contains(ancestor, id NodeID) bool {
	for cur := id; cur != Nil; cur = d.Parent(cur) {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// IsConnected reports whether id is reachable from the document node.
func (d *Document) IsConnected(id NodeID) bool {
	return d.Valid(id) && d.Contains(d.root, id)
}

// Walk visits id and its descendants in document order (depth-first,
// pre-order). Returning false from fn skips the node's children.
func (d *Document) Walk(id NodeID, fn func(NodeID) bool) {
	n := d.get(id)
	if n == nil {
		return
	}
	if !fn(id) {
		return
	}
	for _, c := range d.Children(id) {
		d.Walk(c, fn)
	}
}

// Descendants returns the elements below id in document order, excluding id.
func (d *Document) Descendants(id NodeID) []NodeID {
	var out []NodeID
	d.Walk(id, func(n NodeID) bool {
		if n != id && d.IsElement(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindByAttr returns the first element at or below id whose attribute name
// equals value, or Nil.
func (d *Document) FindByAttr(id NodeID, name, value string) NodeID {
	found := Nil
	d.Walk(id, func(n NodeID) bool {
		if found != Nil {
			return false
		}
		if v, ok := d.Attr(n, name); ok && d.IsElement(n) && v == value {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAllWithAttr returns every element at or below id that has attribute name.
func (d *Document) FindAllWithAttr(id NodeID, name string) []NodeID {
	var out []NodeID
	d.Walk(id, func(n NodeID) bool {
		if d.IsElement(n) && d.HasAttr(n, name) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// TextContent returns the concatenated text of id and its descendants.
func (d *Document) TextContent(id NodeID) string {
	var b strings.Builder
	d.Walk(id, func(n NodeID) bool {
		if d.Type(n) == TextNode {
			b.WriteString(d.Data(n))
		}
		return true
	})
	return b.String()
}

// IsEqualNode reports whether a and b are structurally identical: same type,
// tag, attribute set, character data and, recursively, children. Form
// properties are not compared.
func (d *Document) IsEqualNode(a, b NodeID) bool {
	na, nb := d.get(a), d.get(b)
	if na == nil || nb == nil {
		return na == nb
	}
	if na.typ != nb.typ || na.tag != nb.tag || na.data != nb.data {
		return false
	}
	if len(na.attrs) != len(nb.attrs) || len(na.children) != len(nb.children) {
		return false
	}
	for _, a := range na.attrs {
		v, ok := d.Attr(b, a.Name)
		if !ok || v != a.Value {
			return false
		}
	}
	for i := range na.children {
		if !d.IsEqualNode(na.children[i], nb.children[i]) {
			return false
		}
	}
	return true
}
