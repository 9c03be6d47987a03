package form

import (
	"fmt"

	"github.com/a3tai/mcp-form-filler/internal/dom"
)

// QuestionType is the structural kind of a question, fixed at extraction.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single_choice"
	QuestionTypeMultiChoice  QuestionType = "multi_choice"
	QuestionTypeDropdown     QuestionType = "dropdown"
	QuestionTypeLinearScale  QuestionType = "linear_scale"
	QuestionTypeGrid         QuestionType = "grid"
	QuestionTypeFreeText     QuestionType = "free_text"
)

// HasOptions reports whether the type carries a flat option list.
func (t QuestionType) HasOptions() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeDropdown, QuestionTypeLinearScale:
		return true
	}
	return false
}

// Question is one answerable item extracted from a container.
type Question struct {
	Index int          `json:"index"`
	Text  string       `json:"text"`
	Type  QuestionType `json:"type"`

	// Options and Elements are aligned 1:1. For dropdowns Elements holds the
	// option nodes; for free text Elements holds the single entry control.
	Options  []string      `json:"options,omitempty"`
	Elements []dom.Element `json:"-"`

	// Control is the native select of a dropdown question.
	Control dom.Element `json:"-"`

	// Rows is the payload of a grid question.
	Rows []GridRow `json:"rows,omitempty"`
}

// GridRow is one independently answered row of a grid question.
type GridRow struct {
	RowIndex int           `json:"row_index"`
	Label    string        `json:"label"`
	Options  []string      `json:"options"`
	Inputs   []dom.Element `json:"-"`
	Element  dom.Element   `json:"-"`
}

// Validate checks the shape invariants of q.
func (q *Question) Validate() error {
	switch q.Type {
	case QuestionTypeFreeText:
		if len(q.Elements) != 1 {
			return fmt.Errorf("free-text question needs exactly one control, got %d", len(q.Elements))
		}
	case QuestionTypeGrid:
		if len(q.Rows) == 0 {
			return fmt.Errorf("grid question has no usable rows")
		}
		for _, row := range q.Rows {
			if len(row.Inputs) == 0 {
				return fmt.Errorf("grid row %d has no inputs", row.RowIndex)
			}
		}
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeLinearScale, QuestionTypeDropdown:
		if len(q.Options) == 0 {
			return fmt.Errorf("%s question has no options", q.Type)
		}
		if len(q.Options) != len(q.Elements) {
			return fmt.Errorf("%s question has %d options but %d elements", q.Type, len(q.Options), len(q.Elements))
		}
		if q.Type == QuestionTypeDropdown && q.Control == nil {
			return fmt.Errorf("dropdown question has no select control")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

// Extraction is the result of scanning a document.
type Extraction struct {
	Questions  []Question `json:"questions"`
	Containers int        `json:"containers"`
	Skipped    []*Error   `json:"skipped,omitempty"`
}
