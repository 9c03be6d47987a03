package htmldoc

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/a3tai/mcp-form-filler/internal/dom"
)

// Element wraps an element node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ dom.Element = (*Element)(nil)

// Node exposes the underlying html node, mainly for identity checks in tests.
func (e *Element) Node() *html.Node {
	return e.node
}

// QueryAll returns the descendants matching selector.
func (e *Element) QueryAll(selector string) ([]dom.Element, error) {
	return e.doc.queryAll(e.node, selector)
}

// Query returns the first descendant matching selector.
func (e *Element) Query(selector string) (dom.Element, error) {
	return e.doc.query(e.node, selector)
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// Attribute reports the value of an attribute and whether it is set.
func (e *Element) Attribute(name string) (string, bool, error) {
	v, ok := getAttr(e.node, name)
	return v, ok, nil
}

// Text returns the concatenated text content.
func (e *Element) Text() (string, error) {
	return strings.TrimSpace(textContent(e.node)), nil
}

// Value returns the current form value.
func (e *Element) Value() (string, error) {
	return controlValue(e.node), nil
}

// Closest returns the nearest ancestor or self matching selector.
func (e *Element) Closest(selector string) (dom.Element, error) {
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		ok, err := e.doc.matches(n, selector)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.doc.wrap(n), nil
		}
	}
	return nil, dom.ErrNotFound
}

// Parent returns the parent element.
func (e *Element) Parent() (dom.Element, error) {
	p := e.node.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil, dom.ErrNotFound
	}
	return e.doc.wrap(p), nil
}

// Next returns the next sibling element.
func (e *Element) Next() (dom.Element, error) {
	for n := e.node.NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return e.doc.wrap(n), nil
		}
	}
	return nil, dom.ErrNotFound
}

// ScrollIntoView records a scroll event; static documents have no viewport.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.record(Event{Type: EventScroll, Target: describe(e.node)})
	return nil
}

// Click applies the default activation behavior of the element.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := e.node
	switch {
	case n.DataAtom == atom.Input && inputType(n) == "radio":
		e.checkRadio()
	case n.DataAtom == atom.Input && inputType(n) == "checkbox":
		if _, ok := getAttr(n, "checked"); ok {
			removeAttr(n, "checked")
		} else {
			setAttr(n, "checked", "")
		}
	case n.DataAtom == atom.Option:
		selectOption(n)
	case attrEquals(n, "role", "radio"):
		e.checkRoleRadio()
	case attrEquals(n, "role", "checkbox"):
		if attrEquals(n, "aria-checked", "true") {
			setAttr(n, "aria-checked", "false")
		} else {
			setAttr(n, "aria-checked", "true")
		}
	}
	e.doc.record(Event{Type: EventClick, Target: describe(n)})
	return nil
}

// SetValue replaces the form value of an input, textarea or select.
func (e *Element) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := e.node
	switch n.DataAtom {
	case atom.Textarea:
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	case atom.Select:
		var target *html.Node
		for _, opt := range options(n) {
			if controlValue(opt) == value {
				target = opt
				break
			}
		}
		if target == nil {
			return fmt.Errorf("select has no option with value %q", value)
		}
		selectOption(target)
	default:
		setAttr(n, "value", value)
	}
	e.doc.record(Event{Type: EventSetValue, Target: describe(n), Value: value})
	return nil
}

// Dispatch records a synthetic event of eventType.
func (e *Element) Dispatch(ctx context.Context, eventType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.record(Event{Type: eventType, Target: describe(e.node)})
	return nil
}

func (e *Element) checkRadio() {
	n := e.node
	name, _ := getAttr(n, "name")
	if name != "" {
		for _, peer := range findAll(e.doc.root, func(m *html.Node) bool {
			return m.DataAtom == atom.Input && inputType(m) == "radio" && attrEquals(m, "name", name)
		}) {
			removeAttr(peer, "checked")
		}
	}
	setAttr(n, "checked", "")
}

func (e *Element) checkRoleRadio() {
	n := e.node
	group := n.Parent
	for group != nil && !attrEquals(group, "role", "radiogroup") {
		group = group.Parent
	}
	if group != nil {
		for _, peer := range findAll(group, func(m *html.Node) bool { return attrEquals(m, "role", "radio") }) {
			setAttr(peer, "aria-checked", "false")
		}
	}
	setAttr(n, "aria-checked", "true")
}
