package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-filler/internal/dom"
	"github.com/a3tai/mcp-form-filler/internal/dom/htmldoc"
)

func TestResolveLabel(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "aria_label_first",
			html: `<label>Label text<input id="x" type="radio" aria-label="Aria text"></label>`,
			want: "Aria text",
		},
		{
			name: "enclosing_label",
			html: `<label><input id="x" type="checkbox" value="1"> Enclosing </label>`,
			want: "Enclosing",
		},
		{
			name: "next_sibling",
			html: `<div><input id="x" type="radio" value="v"><span>Sibling</span></div>`,
			want: "Sibling",
		},
		{
			name: "parent_text",
			html: `<div> Parent text <input id="x" type="radio" value="v"></div>`,
			want: "Parent text",
		},
		{
			name: "candidate_equal_to_value_rejected",
			html: `<label><input id="x" type="radio" value="Yes">Yes</label>`,
			want: "Option Yes",
		},
		{
			name: "placeholder_default_value",
			html: `<div><input id="x" type="radio"></div>`,
			want: "Option on",
		},
		{
			name: "placeholder_unknown",
			html: `<div><input id="x" type="radio" value=""></div>`,
			want: "Option Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := htmldoc.ParseString(tt.html)
			require.NoError(t, err)
			el, err := doc.Query("#x")
			require.NoError(t, err)

			assert.Equal(t, tt.want, ResolveLabel(el))
		})
	}
}

// stubElement lets a test steer each lookup of the resolver.
type stubElement struct {
	value    string
	attrs    map[string]string
	text     string
	closest  dom.Element
	next     dom.Element
	parent   dom.Element
	children map[string]dom.Element
	failNext bool
}

func (s *stubElement) QueryAll(string) ([]dom.Element, error) { return nil, nil }

func (s *stubElement) Query(selector string) (dom.Element, error) {
	if el, ok := s.children[selector]; ok {
		return el, nil
	}
	return nil, dom.ErrNotFound
}

func (s *stubElement) Tag() string { return "div" }

func (s *stubElement) Attribute(name string) (string, bool, error) {
	v, ok := s.attrs[name]
	return v, ok, nil
}

func (s *stubElement) Text() (string, error) { return s.text, nil }
func (s *stubElement) Value() (string, error) { return s.value, nil }

func (s *stubElement) Closest(string) (dom.Element, error) {
	if s.closest == nil {
		return nil, dom.ErrNotFound
	}
	return s.closest, nil
}

func (s *stubElement) Parent() (dom.Element, error) {
	if s.parent == nil {
		return nil, dom.ErrNotFound
	}
	return s.parent, nil
}

func (s *stubElement) Next() (dom.Element, error) {
	if s.failNext {
		return nil, errors.New("detached")
	}
	if s.next == nil {
		return nil, dom.ErrNotFound
	}
	return s.next, nil
}

func (s *stubElement) ScrollIntoView(context.Context) error { return nil }
func (s *stubElement) Click(context.Context) error { return nil }
func (s *stubElement) SetValue(context.Context, string) error { return nil }
func (s *stubElement) Dispatch(context.Context, string) error { return nil }

func TestResolveLabel_NestedSpanAfterFailures(t *testing.T) {
	span := &stubElement{text: "Span text"}
	parent := &stubElement{text: "v", children: map[string]dom.Element{"span": span}}
	input := &stubElement{value: "v", parent: parent, failNext: true}

	assert.Equal(t, "Span text", ResolveLabel(input))
}
