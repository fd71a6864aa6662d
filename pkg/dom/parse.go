package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	h, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	d := New()
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if id := d.importNode(c); id != Nil {
			d.AppendChild(d.root, id)
		}
	}
	return d, nil
}

// ParseString parses markup into a new document. Markup that starts with a
// doctype or an <html> element is parsed as a full document; anything else is
// parsed as a body fragment whose nodes become children of the document node.
func ParseString(markup string) (*Document, error) {
	head := strings.ToLower(strings.TrimSpace(markup))
	if strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") {
		return Parse(strings.NewReader(markup))
	}
	d := New()
	ids, err := d.ParseFragment(markup, "body")
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		d.AppendChild(d.root, id)
	}
	return d, nil
}

// MustParseString is ParseString that panics on error. For tests and fixtures.
func MustParseString(markup string) *Document {
	d, err := ParseString(markup)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseFragment parses markup in the context of an element with the given tag
// and returns the resulting top-level nodes, detached.
func (d *Document) ParseFragment(markup, contextTag string) ([]NodeID, error) {
	if contextTag == "" {
		contextTag = "body"
	}
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     contextTag,
		DataAtom: atom.Lookup([]byte(contextTag)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}
	out := make([]NodeID, 0, len(nodes))
	for _, n := range nodes {
		if id := d.importNode(n); id != Nil {
			out = append(out, id)
		}
	}
	return out, nil
}

func (d *Document) importNode(h *html.Node) NodeID {
	var id NodeID
	switch h.Type {
	case html.ElementNode:
		id = d.CreateElement(h.Data)
		n := d.get(id)
		for _, a := range h.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			n.attrs = append(n.attrs, Attr{Name: strings.ToLower(name), Value: a.Val})
		}
	case html.TextNode:
		id = d.CreateText(h.Data)
	case html.CommentNode:
		id = d.CreateComment(h.Data)
	default:
		return Nil
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if cid := d.importNode(c); cid != Nil {
			d.AppendChild(id, cid)
		}
	}
	d.initFormState(id)
	return id
}

// Render returns the outer HTML of id. Rendering the document node renders
// all of its children.
func (d *Document) Render(id NodeID) string {
	var buf bytes.Buffer
	if d.Type(id) == DocumentNode {
		for _, c := range d.Children(id) {
			html.Render(&buf, d.exportNode(c))
		}
		return buf.String()
	}
	if h := d.exportNode(id); h != nil {
		html.Render(&buf, h)
	}
	return buf.String()
}

// InnerHTML returns the rendered children of id.
func (d *Document) InnerHTML(id NodeID) string {
	var buf bytes.Buffer
	for _, c := range d.Children(id) {
		if h := d.exportNode(c); h != nil {
			html.Render(&buf, h)
		}
	}
	return buf.String()
}

func (d *Document) exportNode(id NodeID) *html.Node {
	n := d.get(id)
	if n == nil {
		return nil
	}
	var h *html.Node
	switch n.typ {
	case ElementNode:
		h = &html.Node{Type: html.ElementNode, Data: n.tag, DataAtom: atom.Lookup([]byte(n.tag))}
		for _, a := range n.attrs {
			h.Attr = append(h.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	case TextNode:
		h = &html.Node{Type: html.TextNode, Data: n.data}
	case CommentNode:
		h = &html.Node{Type: html.CommentNode, Data: n.data}
	default:
		return nil
	}
	for _, c := range n.children {
		if ch := d.exportNode(c); ch != nil {
			h.AppendChild(ch)
		}
	}
	return h
}
