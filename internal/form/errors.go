package form

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies failures of a fill run.
type ErrorKind int

const (
	// KindExtraction: a container had no prompt, type or options. It is skipped.
	KindExtraction ErrorKind = iota
	// KindOracle: transport or schema failure. The question falls back locally.
	KindOracle
	// KindApplicator: simulated interaction failed. The question is skipped.
	KindApplicator
	// KindRun: precondition or unexpected failure of the whole run.
	KindRun
)

func (k ErrorKind) String() string {
	switch k {
	case KindExtraction:
		return "EXTRACTION_FAILURE"
	case KindOracle:
		return "ORACLE_ERROR"
	case KindApplicator:
		return "APPLICATOR_FAILURE"
	case KindRun:
		return "RUN_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the kind by name.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Error is a failure localized to a container or question.
type Error struct {
	Kind ErrorKind `json:"kind"`
	// Question is the container or question index, -1 for run-level errors.
	Question int    `json:"question"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] question %d: %s: %v", e.Kind, e.Question, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] question %d: %s", e.Kind, e.Question, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, question int, message string, err error) *Error {
	return &Error{Kind: kind, Question: question, Message: message, Err: err}
}
