// Package form turns survey-form containers into typed question records.
package form

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/dom"
)

const (
	selRadio      = `input[type="radio"]`
	selCheckbox   = `input[type="checkbox"]`
	selRadioGroup = `[role="radiogroup"]`
	selSelect     = `select`
	selTextEntry  = `input[type="text"], textarea`
	// selGroupRadio matches radio controls inside a radiogroup, including
	// ARIA radios rendered without a native input.
	selGroupRadio = `input[type="radio"], [role="radio"]`
)

// Selectors lists the markup hooks the classifier recognises.
type Selectors struct {
	// Containers are unioned into one selector group; order does not matter.
	Containers []string `json:"containers"`
	// Titles are tried in order; the first with non-empty text is the prompt.
	Titles []string `json:"titles"`
}

// DefaultSelectors covers current and legacy Google Forms markup plus generic headings.
func DefaultSelectors() Selectors {
	return Selectors{
		Containers: []string{
			".Qr7Oae",
			`[role="listitem"]`,
			".freebirdFormviewerViewItemsItemItem",
			".geS5n",
			".m2",
		},
		Titles: []string{
			`[role="heading"]`,
			".M7eMe",
			".freebirdFormviewerViewItemsItemItemTitle",
			".Ap4rkd",
			"h2", "h3", "h4",
			".geS5n .M7eMe",
		},
	}
}

// Classifier scans documents for questions.
type Classifier struct {
	selectors Selectors
	logger    *zap.Logger
}

// NewClassifier creates a classifier with the default selector set.
func NewClassifier(logger *zap.Logger) *Classifier {
	return NewClassifierWithSelectors(DefaultSelectors(), logger)
}

// NewClassifierWithSelectors creates a classifier with a custom selector set.
func NewClassifierWithSelectors(selectors Selectors, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{selectors: selectors, logger: logger}
}

// Extract scans doc and returns its questions in container order. Containers
// that cannot be turned into a valid question are reported in Skipped.
func (c *Classifier) Extract(ctx context.Context, doc dom.Document) (*Extraction, error) {
	containers, err := doc.QueryAll(strings.Join(c.selectors.Containers, ", "))
	if err != nil {
		return nil, fmt.Errorf("scan question containers: %w", err)
	}
	c.logger.Debug("question containers found", zap.Int("count", len(containers)))

	ext := &Extraction{Containers: len(containers), Questions: make([]Question, 0, len(containers))}
	for i, container := range containers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, ferr := c.analyze(container, i)
		if ferr != nil {
			c.logger.Debug("container skipped", zap.Int("container", i), zap.String("reason", ferr.Message), zap.Error(ferr.Err))
			ext.Skipped = append(ext.Skipped, ferr)
			continue
		}
		q.Index = len(ext.Questions)
		ext.Questions = append(ext.Questions, *q)
	}

	c.logger.Info("form analyzed",
		zap.Int("containers", ext.Containers),
		zap.Int("questions", len(ext.Questions)),
		zap.Int("skipped", len(ext.Skipped)))
	return ext, nil
}

func (c *Classifier) analyze(container dom.Element, index int) (*Question, *Error) {
	text := c.questionText(container)
	if text == "" {
		return nil, NewError(KindExtraction, index, "no question text found", nil)
	}

	q, err := c.classify(container, text)
	if err != nil {
		return nil, NewError(KindExtraction, index, fmt.Sprintf("cannot classify %q", text), err)
	}
	if q == nil {
		return nil, NewError(KindExtraction, index, fmt.Sprintf("could not determine question type for %q", text), nil)
	}
	if err := q.Validate(); err != nil {
		return nil, NewError(KindExtraction, index, fmt.Sprintf("no usable options for %q", text), err)
	}
	return q, nil
}

func (c *Classifier) questionText(container dom.Element) string {
	for _, sel := range c.selectors.Titles {
		el, err := container.Query(sel)
		if err != nil {
			continue
		}
		if text, err := el.Text(); err == nil && text != "" {
			return text
		}
	}
	return ""
}

// classify runs the type decision chain. A nil question with a nil error
// means no type matched.
func (c *Classifier) classify(container dom.Element, text string) (*Question, error) {
	radios, err := container.QueryAll(selRadio)
	if err != nil {
		return nil, err
	}
	if len(radios) > 0 {
		return choiceQuestion(text, QuestionTypeSingleChoice, radios), nil
	}

	checkboxes, err := container.QueryAll(selCheckbox)
	if err != nil {
		return nil, err
	}
	if len(checkboxes) > 0 {
		return choiceQuestion(text, QuestionTypeMultiChoice, checkboxes), nil
	}

	groups, err := container.QueryAll(selRadioGroup)
	if err != nil {
		return nil, err
	}
	if len(groups) == 1 {
		if q := scaleQuestion(text, groups[0]); q != nil {
			return q, nil
		}
	}

	if sel, err := container.Query(selSelect); err == nil {
		return dropdownQuestion(text, sel)
	} else if !dom.IsNotFound(err) {
		return nil, err
	}

	if len(groups) > 1 {
		return gridQuestion(text, groups)
	}

	if input, err := container.Query(selTextEntry); err == nil {
		return &Question{Text: text, Type: QuestionTypeFreeText, Elements: []dom.Element{input}}, nil
	} else if !dom.IsNotFound(err) {
		return nil, err
	}

	return nil, nil
}

func choiceQuestion(text string, typ QuestionType, inputs []dom.Element) *Question {
	q := &Question{
		Text:     text,
		Type:     typ,
		Options:  make([]string, 0, len(inputs)),
		Elements: make([]dom.Element, 0, len(inputs)),
	}
	for _, input := range inputs {
		q.Options = append(q.Options, ResolveLabel(input))
		q.Elements = append(q.Elements, input)
	}
	return q
}

// scaleQuestion returns a linear-scale question when the group holds radios
// and its first labelled node carries a digit. Option texts are 1..N.
func scaleQuestion(text string, group dom.Element) *Question {
	inputs, err := group.QueryAll(selGroupRadio)
	if err != nil || len(inputs) == 0 {
		return nil
	}
	labelled, err := group.Query("[aria-label]")
	if err != nil {
		return nil
	}
	label, _, err := labelled.Attribute("aria-label")
	if err != nil || !strings.ContainsFunc(label, unicode.IsDigit) {
		return nil
	}

	q := &Question{
		Text:     text,
		Type:     QuestionTypeLinearScale,
		Options:  make([]string, 0, len(inputs)),
		Elements: make([]dom.Element, 0, len(inputs)),
	}
	for i, input := range inputs {
		q.Options = append(q.Options, strconv.Itoa(i+1))
		q.Elements = append(q.Elements, input)
	}
	return q
}

func dropdownQuestion(text string, sel dom.Element) (*Question, error) {
	opts, err := sel.QueryAll("option")
	if err != nil {
		return nil, err
	}
	q := &Question{Text: text, Type: QuestionTypeDropdown, Control: sel}
	for _, opt := range opts {
		value, err := opt.Value()
		if err != nil || value == "" {
			continue
		}
		label, err := opt.Text()
		if err != nil || label == "" {
			continue
		}
		q.Options = append(q.Options, label)
		q.Elements = append(q.Elements, opt)
	}
	return q, nil
}

func gridQuestion(text string, groups []dom.Element) (*Question, error) {
	q := &Question{Text: text, Type: QuestionTypeGrid}
	for i, group := range groups {
		inputs, err := group.QueryAll(selGroupRadio)
		if err != nil {
			return nil, err
		}
		if len(inputs) == 0 {
			continue
		}
		row := GridRow{
			RowIndex: i,
			Label:    rowLabel(group, i),
			Inputs:   inputs,
			Options:  make([]string, 0, len(inputs)),
			Element:  group,
		}
		for _, input := range inputs {
			row.Options = append(row.Options, ResolveLabel(input))
		}
		q.Rows = append(q.Rows, row)
	}
	return q, nil
}

func rowLabel(group dom.Element, index int) string {
	if v, ok, err := group.Attribute("aria-label"); err == nil && ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if text, err := group.Text(); err == nil && text != "" {
		return text
	}
	return fmt.Sprintf("Row %d", index+1)
}
