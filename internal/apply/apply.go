// Package apply writes chosen answers back into a document by simulating the
// interactions a user would perform.
package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/a3tai/mcp-form-filler/internal/dom"
	"github.com/a3tai/mcp-form-filler/internal/form"
)

// Choice is the answer to apply. Index is used by choice, scale and dropdown
// questions, Text by free-text questions, and Rows (one option index per
// form.GridRow) by grids.
type Choice struct {
	Index int
	Text  string
	Rows  []int
}

// Applicator performs the interaction for one question type. It reports
// whether a selection was made; it does not verify that the page kept it.
type Applicator interface {
	Apply(ctx context.Context, q *form.Question, c Choice) (bool, error)
}

// Timing holds the pauses that let page scripts react between interactions.
type Timing struct {
	Settle     time.Duration `json:"settle"`
	GridSettle time.Duration `json:"grid_settle"`
	RowDelay   time.Duration `json:"row_delay"`
}

// DefaultTiming matches the pauses of the browser extension.
func DefaultTiming() Timing {
	return Timing{
		Settle:     500 * time.Millisecond,
		GridSettle: 300 * time.Millisecond,
		RowDelay:   500 * time.Millisecond,
	}
}

// ErrUnsupportedType is returned when no applicator is registered for a question type.
var ErrUnsupportedType = errors.New("no applicator for question type")

// Registry dispatches on the question type.
type Registry map[form.QuestionType]Applicator

// NewRegistry returns the applicators for every question type.
func NewRegistry(t Timing) Registry {
	choice := &ChoiceApplicator{Timing: t}
	return Registry{
		form.QuestionTypeSingleChoice: choice,
		form.QuestionTypeMultiChoice:  choice,
		form.QuestionTypeLinearScale:  choice,
		form.QuestionTypeDropdown:     &DropdownApplicator{Timing: t},
		form.QuestionTypeFreeText:     &TextApplicator{Timing: t},
		form.QuestionTypeGrid:         &GridApplicator{Timing: t},
	}
}

// Apply runs the applicator registered for q.Type.
func (r Registry) Apply(ctx context.Context, q *form.Question, c Choice) (bool, error) {
	a, ok := r[q.Type]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedType, q.Type)
	}
	return a.Apply(ctx, q, c)
}

// ChoiceApplicator clicks one option of a single-choice, multi-choice or scale question.
type ChoiceApplicator struct {
	Timing Timing
}

func (a *ChoiceApplicator) Apply(ctx context.Context, q *form.Question, c Choice) (bool, error) {
	if c.Index < 0 || c.Index >= len(q.Elements) {
		return false, fmt.Errorf("option index %d out of range [0, %d)", c.Index, len(q.Elements))
	}
	if err := clickAndNotify(ctx, q.Elements[c.Index], a.Timing.Settle); err != nil {
		return false, err
	}
	return true, nil
}

// DropdownApplicator assigns the chosen option's value to the select control.
type DropdownApplicator struct {
	Timing Timing
}

func (a *DropdownApplicator) Apply(ctx context.Context, q *form.Question, c Choice) (bool, error) {
	if q.Control == nil {
		return false, errors.New("dropdown has no select control")
	}
	if c.Index < 0 || c.Index >= len(q.Elements) {
		return false, fmt.Errorf("option index %d out of range [0, %d)", c.Index, len(q.Elements))
	}
	value, err := q.Elements[c.Index].Value()
	if err != nil {
		return false, fmt.Errorf("read option value: %w", err)
	}

	if err := q.Control.ScrollIntoView(ctx); err != nil {
		return false, fmt.Errorf("scroll select: %w", err)
	}
	if err := sleep(ctx, a.Timing.Settle); err != nil {
		return false, err
	}
	if err := q.Control.SetValue(ctx, value); err != nil {
		return false, fmt.Errorf("set select value: %w", err)
	}
	if err := q.Control.Dispatch(ctx, dom.EventChange); err != nil {
		return false, fmt.Errorf("dispatch change: %w", err)
	}
	return true, nil
}

// TextApplicator types the answer into a text input or textarea. An empty
// answer applies nothing.
type TextApplicator struct {
	Timing Timing
}

func (a *TextApplicator) Apply(ctx context.Context, q *form.Question, c Choice) (bool, error) {
	if c.Text == "" {
		return false, nil
	}
	if len(q.Elements) == 0 {
		return false, errors.New("free-text question has no input")
	}
	el := q.Elements[0]

	if err := el.ScrollIntoView(ctx); err != nil {
		return false, fmt.Errorf("scroll input: %w", err)
	}
	if err := sleep(ctx, a.Timing.Settle); err != nil {
		return false, err
	}
	if err := el.SetValue(ctx, c.Text); err != nil {
		return false, fmt.Errorf("set input value: %w", err)
	}
	for _, ev := range []string{dom.EventInput, dom.EventChange} {
		if err := el.Dispatch(ctx, ev); err != nil {
			return false, fmt.Errorf("dispatch %s: %w", ev, err)
		}
	}
	return true, nil
}

// GridApplicator clicks one input per row. A failing row does not stop the
// others; the result is true when at least one row was filled.
type GridApplicator struct {
	Timing Timing
}

func (a *GridApplicator) Apply(ctx context.Context, q *form.Question, c Choice) (bool, error) {
	if len(c.Rows) != len(q.Rows) {
		return false, fmt.Errorf("got %d row choices for %d rows", len(c.Rows), len(q.Rows))
	}

	filled := 0
	var errs []error
	for i, row := range q.Rows {
		if i > 0 {
			if err := sleep(ctx, a.Timing.RowDelay); err != nil {
				return filled > 0, err
			}
		}
		idx := c.Rows[i]
		if idx < 0 || idx >= len(row.Inputs) {
			errs = append(errs, fmt.Errorf("row %q: option index %d out of range", row.Label, idx))
			continue
		}
		if err := clickAndNotify(ctx, row.Inputs[idx], a.Timing.GridSettle); err != nil {
			if ctx.Err() != nil {
				return filled > 0, err
			}
			errs = append(errs, fmt.Errorf("row %q: %w", row.Label, err))
			continue
		}
		filled++
	}
	return filled > 0, errors.Join(errs...)
}

func clickAndNotify(ctx context.Context, el dom.Element, settle time.Duration) error {
	if err := el.ScrollIntoView(ctx); err != nil {
		return fmt.Errorf("scroll option: %w", err)
	}
	if err := sleep(ctx, settle); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click option: %w", err)
	}
	if err := el.Dispatch(ctx, dom.EventChange); err != nil {
		return fmt.Errorf("dispatch change: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
