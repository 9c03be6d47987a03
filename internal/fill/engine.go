// Package fill drives a complete fill pass over a form document.
package fill

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/answer"
	"github.com/a3tai/mcp-form-filler/internal/apply"
	"github.com/a3tai/mcp-form-filler/internal/dom"
	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/oracle"
)

// DefaultPace is the minimum spacing between questions.
const DefaultPace = 2 * time.Second

// Applier writes a choice into the document. apply.Registry implements it.
type Applier interface {
	Apply(ctx context.Context, q *form.Question, c apply.Choice) (bool, error)
}

// Engine runs fill passes. It is not safe for concurrent use: the pacer
// and the random source are shared by every Run, so hosts build one
// Engine per run.
type Engine struct {
	classifier *form.Classifier
	factory    oracle.Factory
	pacer      Pacer
	applier    Applier
	observer   Observer
	grid       GridStrategy
	rng        *rand.Rand
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier sets the question extractor.
func WithClassifier(c *form.Classifier) Option { return func(e *Engine) { e.classifier = c } }

// WithOracleFactory sets how the oracle is built from the run credential.
func WithOracleFactory(f oracle.Factory) Option { return func(e *Engine) { e.factory = f } }

// WithPacer sets the limiter waited on before each question.
func WithPacer(p Pacer) Option { return func(e *Engine) { e.pacer = p } }

// WithApplier sets what writes choices into the document.
func WithApplier(a Applier) Option { return func(e *Engine) { e.applier = a } }

// WithObserver sets the progress receiver.
func WithObserver(o Observer) Option { return func(e *Engine) { e.observer = o } }

// WithGridStrategy selects how grid rows are answered.
func WithGridStrategy(s GridStrategy) Option { return func(e *Engine) { e.grid = s } }

// WithRand sets the random source used by GridRandom.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// NewEngine creates an engine. Without options it uses the default
// classifier, the Hugging Face oracle, DefaultPace and apply.DefaultTiming.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger, grid: GridOracle}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = form.NewClassifier(logger)
	}
	if e.factory == nil {
		e.factory = oracle.NewFactory(oracle.DefaultOptions(), logger)
	}
	if e.pacer == nil {
		e.pacer = NewPacer(DefaultPace)
	}
	if e.applier == nil {
		e.applier = apply.NewRegistry(apply.DefaultTiming())
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return e
}

// Run extracts the questions of doc, answers each in order and applies the
// answers. It never returns nil and never panics; failures are reported in
// the Report. Canceling ctx stops before the next wait and returns the
// partial report with Success false.
func (e *Engine) Run(ctx context.Context, doc dom.Document, apiKey string) (report *Report) {
	report = &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger := e.logger.With(zap.String("run_id", report.RunID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("fill run panicked", zap.Any("panic", r), zap.Stack("stack"))
			report.Success = false
			report.Message = MessageRunFailed
			report.Errors = append(report.Errors, form.NewError(form.KindRun, -1, fmt.Sprintf("panic: %v", r), nil))
		}
		report.Duration = time.Since(report.StartedAt)
	}()

	ext, err := e.classifier.Extract(ctx, doc)
	if err != nil {
		logger.Error("form extraction failed", zap.Error(err))
		return e.fail(report, MessageRunFailed, err)
	}
	report.Errors = append(report.Errors, ext.Skipped...)

	report.Total = len(ext.Questions)
	if report.Total == 0 {
		logger.Info("no answerable questions", zap.Int("containers", ext.Containers))
		return e.fail(report, MessageNoQuestions, nil)
	}

	orc, err := e.factory(apiKey)
	if err != nil {
		logger.Error("oracle unavailable", zap.Error(err))
		return e.fail(report, MessageRunFailed, err)
	}

	report.Decisions = make([]Decision, report.Total)
	for i := range ext.Questions {
		q := &ext.Questions[i]
		report.Decisions[i] = Decision{QuestionIndex: q.Index, Question: q.Text, Type: q.Type, ChosenIndex: -1, State: StatePending}
	}

	for i := range ext.Questions {
		q := &ext.Questions[i]
		e.notify(ctx, logger, Progress{RunID: report.RunID, Current: i + 1, Total: report.Total, Question: q.Text})

		if err := e.pacer.Wait(ctx); err != nil {
			return e.canceled(ctx, logger, report, err)
		}

		d := &report.Decisions[i]
		d.State = StateInFlight
		choice, ferr := e.decide(ctx, orc, q, d)
		if ferr != nil {
			report.Errors = append(report.Errors, ferr)
			d.Err = ferr.Error()
		}
		if ctx.Err() != nil {
			d.State = StateSkipped
			return e.canceled(ctx, logger, report, ctx.Err())
		}

		applied, aerr := e.applier.Apply(ctx, q, choice)
		if aerr != nil {
			ae := form.NewError(form.KindApplicator, q.Index, "apply answer", aerr)
			report.Errors = append(report.Errors, ae)
			d.Err = ae.Error()
			logger.Warn("answer not fully applied", zap.Int("question", q.Index), zap.Error(aerr))
		}
		if applied {
			d.State = StateFilled
			report.Filled++
		} else {
			d.State = StateSkipped
		}
		logger.Debug("question processed",
			zap.Int("question", q.Index),
			zap.String("type", string(q.Type)),
			zap.String("state", d.State.String()),
			zap.String("method", string(d.Method)))

		if ctx.Err() != nil {
			return e.canceled(ctx, logger, report, ctx.Err())
		}
	}

	report.Success = true
	report.Message = fmt.Sprintf(messageSuccess, report.Filled, report.Total)
	logger.Info("fill run complete", zap.Int("filled", report.Filled), zap.Int("total", report.Total))
	return report
}

// decide asks the oracle and turns the reply into a choice. Oracle failures
// resolve through the protocol fallback and are returned for the record.
func (e *Engine) decide(ctx context.Context, orc oracle.Oracle, q *form.Question, d *Decision) (apply.Choice, *form.Error) {
	var sel answer.Selection
	var ferr *form.Error
	ask := func(prompt string) (string, bool) {
		reply, err := orc.Ask(ctx, prompt)
		if err != nil {
			e.logger.Warn("oracle failed, using fallback", zap.Int("question", q.Index), zap.Error(err))
			ferr = form.NewError(form.KindOracle, q.Index, "oracle failed", err)
			return "", false
		}
		return reply, true
	}

	switch q.Type {
	case form.QuestionTypeSingleChoice, form.QuestionTypeMultiChoice:
		if reply, ok := ask(answer.LetteredPrompt(q.Text, q.Options)); ok {
			sel = answer.ParseLettered(reply, q.Options)
		} else {
			sel = answer.FirstOption()
		}
	case form.QuestionTypeDropdown:
		if reply, ok := ask(answer.LiteralPrompt(q.Text, q.Options)); ok {
			sel = answer.ParseLiteral(reply, q.Options)
		} else {
			sel = answer.FirstOption()
		}
	case form.QuestionTypeLinearScale:
		if reply, ok := ask(answer.ScalePrompt(q.Text, len(q.Options))); ok {
			sel = answer.ParseScale(reply, len(q.Options))
		} else {
			sel = answer.ScaleFallback(len(q.Options))
		}
	case form.QuestionTypeFreeText:
		d.Method = answer.MethodVerbatim
		if reply, ok := ask(answer.FreeTextPrompt(q.Text)); ok {
			d.ChosenText = answer.ParseFreeText(reply)
		}
		return apply.Choice{Text: d.ChosenText}, ferr
	case form.QuestionTypeGrid:
		choice := e.decideGrid(q, d, ask)
		return choice, ferr
	default:
		return apply.Choice{}, form.NewError(form.KindRun, q.Index, fmt.Sprintf("unsupported question type %q", q.Type), nil)
	}

	d.ChosenIndex = sel.Index
	d.ChosenText = q.Options[sel.Index]
	d.Method = sel.Method
	return apply.Choice{Index: sel.Index}, ferr
}

func (e *Engine) decideGrid(q *form.Question, d *Decision, ask func(string) (string, bool)) apply.Choice {
	rows := make([]int, len(q.Rows))
	methods := make([]answer.Method, len(q.Rows))
	for i, row := range q.Rows {
		if e.grid == GridRandom {
			rows[i] = e.rng.IntN(len(row.Inputs))
			methods[i] = answer.MethodRandom
			continue
		}
		var sel answer.Selection
		if reply, ok := ask(answer.GridRowPrompt(q.Text, row.Label, row.Options)); ok {
			sel = answer.ParseLettered(reply, row.Options)
		} else {
			sel = answer.FirstOption()
		}
		if sel.Index >= len(row.Inputs) {
			sel = answer.FirstOption()
		}
		rows[i] = sel.Index
		methods[i] = sel.Method
	}
	d.RowChoices = rows
	d.RowMethods = methods
	if len(methods) > 0 {
		d.Method = methods[0]
	}
	return apply.Choice{Rows: rows}
}

func (e *Engine) notify(ctx context.Context, logger *zap.Logger, p Progress) {
	if e.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("progress observer panicked", zap.Any("panic", r))
		}
	}()
	e.observer.Progress(ctx, p)
}

func (e *Engine) fail(report *Report, message string, err error) *Report {
	report.Success = false
	report.Message = message
	if err != nil {
		report.Errors = append(report.Errors, form.NewError(form.KindRun, -1, message, err))
	}
	return report
}

func (e *Engine) canceled(ctx context.Context, logger *zap.Logger, report *Report, err error) *Report {
	for i := range report.Decisions {
		if report.Decisions[i].State == StateInFlight {
			report.Decisions[i].State = StateSkipped
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = errors.Join(err, ctxErr)
	}
	logger.Info("fill run canceled", zap.Int("filled", report.Filled), zap.Int("total", report.Total), zap.Error(err))
	return e.fail(report, fmt.Sprintf(messageCanceled, report.Filled, report.Total), err)
}
