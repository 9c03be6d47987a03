package oracle

import (
	"errors"
	"fmt"
)

// ErrorType categorises oracle failures.
type ErrorType int

const (
	ErrorTypeTransport ErrorType = iota
	ErrorTypeStatus
	ErrorTypeSchema
	ErrorTypeCredential
)

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransport:
		return "TRANSPORT"
	case ErrorTypeStatus:
		return "STATUS"
	case ErrorTypeSchema:
		return "SCHEMA"
	case ErrorTypeCredential:
		return "CREDENTIAL"
	default:
		return "UNKNOWN"
	}
}

// Error is returned by every Oracle implementation on failure.
type Error struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrMissingCredential is wrapped by credential errors.
var ErrMissingCredential = errors.New("no API key configured")

// IsCredentialError reports whether err is an oracle credential failure.
func IsCredentialError(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Type == ErrorTypeCredential
}
