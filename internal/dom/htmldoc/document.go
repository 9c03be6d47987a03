// Package htmldoc implements dom.Document over an in-memory HTML tree.
//
// It is used for offline form snapshots and as the synthetic document in
// tests. Interactions mutate the tree the way a browser would mutate form
// state (checked, selected, value) and are recorded in an event log.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/a3tai/mcp-form-filler/internal/dom"
)

// Event records one simulated interaction.
type Event struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Value  string `json:"value,omitempty"`
}

// Interaction kinds recorded in addition to dispatched event types.
const (
	EventScroll   = "scroll"
	EventClick    = "click"
	EventSetValue = "set-value"
)

// Document is a mutable HTML document.
type Document struct {
	root *html.Node

	mu        sync.Mutex
	selectors map[string]cascadia.SelectorGroup
	events    []Event
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		root:      root,
		selectors: make(map[string]cascadia.SelectorGroup),
	}, nil
}

// ParseString parses an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// QueryAll implements dom.Node.
func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	return d.queryAll(d.root, selector)
}

// Query implements dom.Node.
func (d *Document) Query(selector string) (dom.Element, error) {
	return d.query(d.root, selector)
}

// Events returns a copy of the interaction log.
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Render writes the current (possibly mutated) document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func (d *Document) compile(selector string) (cascadia.SelectorGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.selectors[selector] = sel
	return sel, nil
}

func (d *Document) queryAll(n *html.Node, selector string) ([]dom.Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	nodes := cascadia.QueryAll(n, sel)
	out := make([]dom.Element, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, d.wrap(node))
	}
	return out, nil
}

func (d *Document) query(n *html.Node, selector string) (dom.Element, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	node := cascadia.Query(n, sel)
	if node == nil {
		return nil, dom.ErrNotFound
	}
	return d.wrap(node), nil
}

func (d *Document) matches(n *html.Node, selector string) (bool, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return false, err
	}
	return sel.Match(n), nil
}

func (d *Document) record(ev Event) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}
