package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrEquals(n *html.Node, key, val string) bool {
	v, ok := getAttr(n, key)
	return ok && v == val
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func inputType(n *html.Node) string {
	t, ok := getAttr(n, "type")
	if !ok || t == "" {
		return "text"
	}
	return strings.ToLower(t)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
			return
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// controlValue mirrors the DOM value property of form controls.
func controlValue(n *html.Node) string {
	switch n.DataAtom {
	case atom.Input:
		if v, ok := getAttr(n, "value"); ok {
			return v
		}
		switch inputType(n) {
		case "radio", "checkbox":
			return "on"
		}
		return ""
	case atom.Option:
		if v, ok := getAttr(n, "value"); ok {
			return v
		}
		return strings.Join(strings.Fields(textContent(n)), " ")
	case atom.Textarea:
		return textContent(n)
	case atom.Select:
		opts := options(n)
		for _, opt := range opts {
			if _, ok := getAttr(opt, "selected"); ok {
				return controlValue(opt)
			}
		}
		if _, multiple := getAttr(n, "multiple"); !multiple && len(opts) > 0 {
			return controlValue(opts[0])
		}
		return ""
	}
	v, _ := getAttr(n, "value")
	return v
}

func options(sel *html.Node) []*html.Node {
	return findAll(sel, func(m *html.Node) bool { return m.DataAtom == atom.Option })
}

func selectOption(opt *html.Node) {
	sel := opt.Parent
	for sel != nil && sel.DataAtom != atom.Select {
		sel = sel.Parent
	}
	if sel != nil {
		if _, multiple := getAttr(sel, "multiple"); !multiple {
			for _, o := range options(sel) {
				removeAttr(o, "selected")
			}
		}
	}
	setAttr(opt, "selected", "")
}

func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// describe renders a short selector-like name for the event log.
func describe(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString(n.Data)
	if id, ok := getAttr(n, "id"); ok && id != "" {
		sb.WriteString("#" + id)
		return sb.String()
	}
	for _, key := range []string{"name", "value", "aria-label"} {
		if v, ok := getAttr(n, key); ok && v != "" {
			sb.WriteString("[" + key + "=" + v + "]")
			return sb.String()
		}
	}
	return sb.String()
}
