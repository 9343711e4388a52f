package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Element is an element node of a Document.
type Element struct {
	doc       *Document
	node      *html.Node
	listeners map[string][]listener
	nextID    int
}

// Document returns the document that owns e.
func (e *Element) Document() *Document { return e.doc }

// Node returns the underlying html node.
func (e *Element) Node() *html.Node { return e.node }

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// ID returns the id attribute, or "" if unset.
func (e *Element) ID() string {
	v, _ := e.Attr("id")
	return v
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(key string) (string, bool) {
	return attr(e.node, key)
}

// SetAttr sets the named attribute, replacing any previous value.
func (e *Element) SetAttr(key, val string) *Element {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			e.node.Attr[i].Val = val
			return e
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: key, Val: val})
	return e
}

// RemoveAttr removes the named attribute.
func (e *Element) RemoveAttr(key string) *Element {
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
	return e
}

// Classes returns the class list in order.
func (e *Element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether the class list contains name.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds each whitespace separated class name not already present.
func (e *Element) AddClass(names string) *Element {
	classes := e.Classes()
	for _, name := range strings.Fields(names) {
		if !e.HasClass(name) {
			classes = append(classes, name)
			e.SetAttr("class", strings.Join(classes, " "))
		}
	}
	return e
}

// RemoveClass removes each whitespace separated class name.
func (e *Element) RemoveClass(names string) *Element {
	drop := strings.Fields(names)
	var kept []string
	for _, c := range e.Classes() {
		remove := false
		for _, d := range drop {
			if c == d {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return e.RemoveAttr("class")
	}
	return e.SetAttr("class", strings.Join(kept, " "))
}

// ToggleClass adds name when on is true and removes it otherwise.
func (e *Element) ToggleClass(name string, on bool) *Element {
	if on {
		return e.AddClass(name)
	}
	return e.RemoveClass(name)
}

// Text returns the concatenated text content of e and its descendants.
func (e *Element) Text() string {
	var b strings.Builder
	walk(e.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return b.String()
}

// SetText replaces the children of e with a single text node.
func (e *Element) SetText(text string) *Element {
	e.clearChildren()
	if text != "" {
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return e
}

// AppendText adds a text node after the existing children of e.
func (e *Element) AppendText(text string) *Element {
	if text != "" {
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return e
}

// HTML renders the children of e.
func (e *Element) HTML() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// OuterHTML renders e itself.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node); err != nil {
		return ""
	}
	return buf.String()
}

// SetHTML parses fragment in the context of e and replaces its children.
func (e *Element) SetHTML(fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), e.node)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	e.clearChildren()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// Clone returns a deep, detached copy of e. Listeners are not copied.
func (e *Element) Clone() *Element {
	return e.doc.wrap(cloneNode(e.node))
}

// Parent returns the parent element, or nil when e is detached or is the root.
func (e *Element) Parent() *Element {
	return e.doc.Element(e.node.Parent)
}

// Children returns the element children of e.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// Append moves child to the end of e's children.
func (e *Element) Append(child *Element) *Element {
	child.detach()
	e.node.AppendChild(child.node)
	return e
}

// InsertBefore moves e so it becomes the previous sibling of ref.
// Nothing happens when ref has no parent.
func (e *Element) InsertBefore(ref *Element) *Element {
	if ref.node.Parent == nil {
		return e
	}
	e.detach()
	ref.node.Parent.InsertBefore(e.node, ref.node)
	return e
}

// After moves other so it becomes the next sibling of e.
// Nothing happens when e has no parent.
func (e *Element) After(other *Element) *Element {
	if e.node.Parent == nil {
		return e
	}
	other.detach()
	e.node.Parent.InsertBefore(other.node, e.node.NextSibling)
	return e
}

// Remove detaches e from its parent. The element and its listeners stay
// usable and can be inserted again.
func (e *Element) Remove() *Element {
	e.detach()
	return e
}

// Attached reports whether e is part of the document tree.
func (e *Element) Attached() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// Find returns the descendants of e matching a CSS selector.
func (e *Element) Find(selector string) ([]*Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	var out []*Element
	for _, n := range sel.MatchAll(e.node) {
		if n != e.node {
			out = append(out, e.doc.wrap(n))
		}
	}
	return out, nil
}

// Query returns every element of the document matching a CSS selector.
func (d *Document) Query(selector string) ([]*Element, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	var out []*Element
	for _, n := range sel.MatchAll(d.root) {
		out = append(out, d.wrap(n))
	}
	return out, nil
}

func (e *Element) detach() {
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
}

func (e *Element) clearChildren() {
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
