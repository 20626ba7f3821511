// Package tei reads GROBID's TEI XML into a queryable tree and the flat
// article mapping used by the extractors.
package tei

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotTEI is returned when the document root is not a TEI element.
var ErrNotTEI = errors.New("document is not TEI")

// Node is one XML element or, when Name is empty, a run of character data.
// Element and attribute names are stored without namespace prefixes.
type Node struct {
	Name     string
	Attrs    map[string]string
	Children []*Node
	Data     string
}

// Tree is a parsed TEI document.
type Tree struct {
	Root *Node
}

// Parse builds a Tree from TEI XML.
func Parse(raw []byte) (*Tree, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrNotTEI)
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode tei: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("decode tei: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, &Node{Data: string(t)})
			}
		}
	}
	if root == nil || !strings.EqualFold(root.Name, "TEI") {
		return nil, ErrNotTEI
	}
	return &Tree{Root: root}, nil
}

// IsElement reports whether n is an element rather than text.
func (n *Node) IsElement() bool { return n != nil && n.Name != "" }

// Is reports whether n is an element with the given name, ignoring case.
func (n *Node) Is(name string) bool { return n.IsElement() && strings.EqualFold(n.Name, name) }

// Attr returns an attribute value.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Child returns the first direct child element with the given name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Is(name) {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns direct child elements with the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Is(name) {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first descendant element (depth first, document order)
// with the given name.
func (n *Node) Find(name string) *Node {
	return n.FindFunc(func(c *Node) bool { return c.Is(name) })
}

// FindFunc returns the first descendant element matching fn.
func (n *Node) FindFunc(fn func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if !c.IsElement() {
			continue
		}
		if fn(c) {
			return c
		}
		if found := c.FindFunc(fn); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant element with the given name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	n.walk(func(c *Node) {
		if c.Is(name) {
			out = append(out, c)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		if c.IsElement() {
			fn(c)
			c.walk(fn)
		}
	}
}

// Text concatenates all character data below n.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	if !n.IsElement() {
		return n.Data
	}
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	for _, c := range n.Children {
		if c.IsElement() {
			c.writeText(b)
		} else {
			b.WriteString(c.Data)
		}
	}
}

// Coords returns the coords attribute GROBID attaches to located elements.
func (n *Node) Coords() (string, bool) { return n.Attr("coords") }

// Header returns the teiHeader element.
func (t *Tree) Header() *Node { return t.Root.Find("teiHeader") }

// Body returns the text/body element.
func (t *Tree) Body() *Node { return t.Root.Child("text").Child("body") }

// HeaderAuthors returns the author elements of the document header.
func (t *Tree) HeaderAuthors() []*Node { return t.Header().FindAll("author") }

// Formulas returns every formula element in document order.
func (t *Tree) Formulas() []*Node { return t.Root.FindAll("formula") }

// Figures returns every figure element in document order. GROBID marks tables
// as figure elements too.
func (t *Tree) Figures() []*Node { return t.Root.FindAll("figure") }
