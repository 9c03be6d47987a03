package fill

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/time/rate"

	"github.com/a3tai/mcp-form-filler/internal/answer"
	"github.com/a3tai/mcp-form-filler/internal/form"
)

// Messages reported to the host.
const (
	MessageNoQuestions = "No answerable questions found on this page"
	MessageRunFailed   = "Error occurred while processing questions"
	messageSuccess     = "Successfully filled %d out of %d questions"
	messageCanceled    = "Run canceled after filling %d out of %d questions"
)

// State is the lifecycle position of one question within a run.
type State int

const (
	StatePending State = iota
	StateInFlight
	StateFilled
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateFilled:
		return "filled"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the state by name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// GridStrategy selects how grid rows are answered.
type GridStrategy string

const (
	// GridOracle asks the oracle once per row.
	GridOracle GridStrategy = "oracle"
	// GridRandom picks a uniformly random option per row.
	GridRandom GridStrategy = "random"
)

// Decision records what was chosen for one question and whether it was applied.
type Decision struct {
	QuestionIndex int               `json:"question_index"`
	Question      string            `json:"question"`
	Type          form.QuestionType `json:"type"`
	// ChosenIndex is -1 for free-text and grid questions.
	ChosenIndex int             `json:"chosen_index"`
	ChosenText  string          `json:"chosen_text,omitempty"`
	RowChoices  []int           `json:"row_choices,omitempty"`
	RowMethods  []answer.Method `json:"row_methods,omitempty"`
	Method      answer.Method   `json:"method,omitempty"`
	State       State           `json:"state"`
	Err         string          `json:"error,omitempty"`
}

// Applied reports whether the answer was written to the document.
func (d Decision) Applied() bool {
	return d.State == StateFilled
}

// Report is the outcome of one run.
type Report struct {
	RunID     string        `json:"run_id"`
	Success   bool          `json:"success"`
	Filled    int           `json:"filled"`
	Total     int           `json:"total"`
	Message   string        `json:"message"`
	Decisions []Decision    `json:"decisions"`
	Errors    []*form.Error `json:"errors,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Progress is emitted before each question is processed. Current is 1-based.
type Progress struct {
	RunID    string `json:"run_id"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Question string `json:"question"`
}

// Observer receives progress updates. Delivery is best-effort: a slow or
// panicking observer never affects the run.
type Observer interface {
	Progress(ctx context.Context, p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, p Progress)

func (f ObserverFunc) Progress(ctx context.Context, p Progress) {
	f(ctx, p)
}

// Pacer is waited on before each question. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer allows one question per interval; interval <= 0 disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
