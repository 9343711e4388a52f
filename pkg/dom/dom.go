// Package dom is a small mutable HTML document model used by jsblock widgets.
//
// It wraps golang.org/x/net/html nodes with the handful of operations a widget
// needs: element creation, class/attribute/style manipulation, cloning,
// insertion and removal, text and HTML content, CSS selector queries and
// per-element event listeners.
//
// A Document is not safe for concurrent use. Each Element returned by a
// Document is canonical: the same underlying node always yields the same
// *Element, so elements can be used as map keys.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document.
type Document struct {
	root     *html.Node
	elements map[*html.Node]*Element
}

// NewDocument returns an empty document with html, head and body elements.
func NewDocument() *Document {
	doc, err := ParseString("<!DOCTYPE html><html><head></head><body></body></html>")
	if err != nil {
		// the literal above always parses
		panic(err)
	}
	return doc
}

// Parse parses a complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		root:     root,
		elements: make(map[*html.Node]*Element),
	}, nil
}

// ParseString parses a complete HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseBody builds a document whose body contains the given HTML fragment.
func ParseBody(fragment string) (*Document, error) {
	doc := NewDocument()
	if err := doc.Body().SetHTML(fragment); err != nil {
		return nil, err
	}
	return doc, nil
}

// Root returns the underlying document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element.
func (d *Document) Body() *Element {
	return d.findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Body
	})
}

// Head returns the head element.
func (d *Document) Head() *Element {
	return d.findFirst(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Head
	})
}

// CreateElement creates a detached element with the given tag name.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}
	return d.wrap(n)
}

// GetElementByID returns the first attached element with the given id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	return d.findFirst(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := attr(n, "id")
		return ok && v == id
	})
}

// Element returns the canonical Element for an element node.
func (d *Document) Element(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	return d.wrap(n)
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the whole document.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Forget drops the canonical wrapper of e and every element below it.
// Listeners attached to them are discarded.
func (d *Document) Forget(e *Element) {
	if e == nil {
		return
	}
	walk(e.node, func(n *html.Node) {
		delete(d.elements, n)
	})
}

func (d *Document) wrap(n *html.Node) *Element {
	if e, ok := d.elements[n]; ok {
		return e
	}
	e := &Element{doc: d, node: n}
	d.elements[n] = e
	return e
}

func (d *Document) findFirst(from *html.Node, match func(*html.Node) bool) *Element {
	var found *html.Node
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if match(n) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(from)
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
