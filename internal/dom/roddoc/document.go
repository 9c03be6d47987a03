// Package roddoc implements dom.Document over a live browser page driven by Rod.
//
// Reads and interactions are evaluated inside the page so the form framework
// sees the same element.click(), value assignment and bubbling events a user
// gesture would produce.
package roddoc

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/a3tai/mcp-form-filler/internal/dom"
)

// Document wraps a Rod page.
type Document struct {
	page *rod.Page
}

// New binds a document to page. The page stays owned by the caller.
func New(page *rod.Page) *Document {
	return &Document{page: page}
}

// WithContext returns a document whose queries are bound to ctx.
func (d *Document) WithContext(ctx context.Context) *Document {
	return &Document{page: d.page.Context(ctx)}
}

// QueryAll returns the page elements matching selector.
func (d *Document) QueryAll(selector string) ([]dom.Element, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapAll(els), nil
}

// Query returns the first page element matching selector.
func (d *Document) Query(selector string) (dom.Element, error) {
	ok, el, err := d.page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !ok {
		return nil, dom.ErrNotFound
	}
	return &Element{el: el}, nil
}

func wrapAll(els rod.Elements) []dom.Element {
	out := make([]dom.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el})
	}
	return out
}

// elementFromJS evaluates js on el and wraps the returned node, if any.
func elementFromJS(el *rod.Element, js string, args ...interface{}) (dom.Element, error) {
	obj, err := el.Evaluate(rod.Eval(js, args...).ByObject())
	if err != nil {
		return nil, err
	}
	if obj == nil || obj.ObjectID == "" || obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull {
		return nil, dom.ErrNotFound
	}
	found, err := el.Page().ElementFromObject(obj)
	if err != nil {
		return nil, err
	}
	return &Element{el: found}, nil
}
