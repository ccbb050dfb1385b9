package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error is what every pipeline stage reports on failure. Msg is safe to show
// to the caller, wrapped Err carries diagnostic details for the log.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds Error of requested kind. When arguments contain an error
// marked with %w it becomes wrapped error and is excluded from the message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	e := &Error{Kind: kind, Msg: wrapped.Error()}
	if inner := errors.Unwrap(wrapped); inner != nil {
		e.Err = inner
		// keep only the part of the message preceding wrapped error text
		if msg, ok := strings.CutSuffix(e.Msg, inner.Error()); ok && len(msg) > 0 {
			e.Msg = trimSeparator(msg)
		}
	}
	return e
}

func trimSeparator(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == ':') {
		s = s[:len(s)-1]
	}
	return s
}

// KindOf returns kind of the first Error in err chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err chain contains Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Message returns text suitable for the caller: message of the outermost
// Error without wrapped diagnostics, or err text for foreign errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
