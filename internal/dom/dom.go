// Package dom defines the document contract the form engine works against.
//
// A Document is owned by the caller. The engine reads it through structural
// queries and mutates controls in place by synthesizing the interactions a
// user would perform; it never creates or destroys elements.
package dom

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a query, ancestor or sibling lookup has no result.
var ErrNotFound = errors.New("dom: element not found")

// Event types dispatched after simulated interaction.
const (
	EventChange = "change"
	EventInput  = "input"
)

// Node is anything that can be queried with a CSS selector.
type Node interface {
	// QueryAll returns every descendant matching selector in document order.
	QueryAll(selector string) ([]Element, error)
	// Query returns the first descendant matching selector or ErrNotFound.
	Query(selector string) (Element, error)
}

// Document is the root of a live or synthetic form page.
type Document interface {
	Node
}

// Element is a borrowed handle to a node in the document.
type Element interface {
	Node

	// Tag returns the lower-case tag name.
	Tag() string
	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool, error)
	// Text returns the trimmed text content.
	Text() (string, error)
	// Value returns the control value with browser defaults applied.
	Value() (string, error)

	// Closest returns the element itself or its nearest ancestor matching selector.
	Closest(selector string) (Element, error)
	Parent() (Element, error)
	// Next returns the next element sibling.
	Next() (Element, error)

	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	SetValue(ctx context.Context, value string) error
	// Dispatch fires a bubbling event of the given type on the element.
	Dispatch(ctx context.Context, eventType string) error
}

// IsNotFound reports whether err means an absent element.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
