package form

import (
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/dom"
)

type labelStrategy func(el dom.Element, value string) (string, error)

// labelStrategies are tried in order; the first usable candidate wins.
var labelStrategies = []labelStrategy{
	ariaLabel,
	enclosingLabel,
	nextSiblingText,
	parentText,
	parentSpanText,
}

// ResolveLabel returns the best human-readable label of a choice control.
// It never returns an empty string: when no heuristic yields a candidate the
// label is synthesized from the control value.
func ResolveLabel(el dom.Element) string {
	value, err := el.Value()
	if err != nil {
		value = ""
	}
	for _, strategy := range labelStrategies {
		text, err := strategy(el, value)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" && text != value {
			return text
		}
	}
	if value == "" {
		value = "Unknown"
	}
	return "Option " + value
}

func ariaLabel(el dom.Element, _ string) (string, error) {
	v, _, err := el.Attribute("aria-label")
	return v, err
}

func enclosingLabel(el dom.Element, _ string) (string, error) {
	label, err := el.Closest("label")
	if err != nil {
		return "", err
	}
	return label.Text()
}

func nextSiblingText(el dom.Element, _ string) (string, error) {
	next, err := el.Next()
	if err != nil {
		return "", err
	}
	return next.Text()
}

func parentText(el dom.Element, value string) (string, error) {
	parent, err := el.Parent()
	if err != nil {
		return "", err
	}
	text, err := parent.Text()
	if err != nil || text == value {
		return "", err
	}
	return text, nil
}

func parentSpanText(el dom.Element, _ string) (string, error) {
	parent, err := el.Parent()
	if err != nil {
		return "", err
	}
	span, err := parent.Query("span")
	if err != nil {
		return "", err
	}
	return span.Text()
}
