package roddoc

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/a3tai/mcp-form-filler/internal/dom"
)

// Element wraps a Rod element handle.
type Element struct {
	el *rod.Element
}

var _ dom.Element = (*Element)(nil)

// QueryAll returns the descendants matching selector.
func (e *Element) QueryAll(selector string) ([]dom.Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrapAll(els), nil
}

// Query returns the first descendant matching selector.
func (e *Element) Query(selector string) (dom.Element, error) {
	ok, el, err := e.el.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !ok {
		return nil, dom.ErrNotFound
	}
	return &Element{el: el}, nil
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string {
	res, err := e.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// Attribute reports the value of an attribute and whether it is set.
func (e *Element) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// Text returns the visible text of the element.
func (e *Element) Text() (string, error) {
	res, err := e.el.Eval(`() => (this.textContent || '').trim()`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Value returns the live form value.
func (e *Element) Value() (string, error) {
	res, err := e.el.Eval(`() => this.value == null ? '' : String(this.value)`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Closest returns the nearest ancestor or self matching selector.
func (e *Element) Closest(selector string) (dom.Element, error) {
	return elementFromJS(e.el, `(sel) => this.closest(sel)`, selector)
}

// Parent returns the parent element.
func (e *Element) Parent() (dom.Element, error) {
	return elementFromJS(e.el, `() => this.parentElement`)
}

// Next returns the next sibling element.
func (e *Element) Next() (dom.Element, error) {
	return elementFromJS(e.el, `() => this.nextElementSibling`)
}

// ScrollIntoView scrolls the element into the viewport.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.scrollIntoView({behavior: 'smooth', block: 'center'})`)
	return err
}

// Click calls the element's click() in the page.
func (e *Element) Click(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}

// SetValue assigns the element's value property.
func (e *Element) SetValue(ctx context.Context, value string) error {
	_, err := e.el.Context(ctx).Eval(`(v) => { this.value = v }`, value)
	return err
}

// Dispatch fires a bubbling event of eventType on the element.
func (e *Element) Dispatch(ctx context.Context, eventType string) error {
	_, err := e.el.Context(ctx).Eval(`(t) => this.dispatchEvent(new Event(t, {bubbles: true}))`, eventType)
	return err
}
