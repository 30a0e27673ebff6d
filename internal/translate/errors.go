package translate

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed translation.
type ErrorKind int

const (
	KindUnknown                 ErrorKind = iota
	MalformedInput                        // neither shell syntax nor structured text
	AmbiguousOrUnsupportedShape           // structured, but no recognized shape
	MissingCollection                     // no collection resolvable
	MissingRequiredArgument               // e.g. distinct without a field
	UnsupportedMethod                     // no primitive and the generic command failed
	StoreOperationFailed                  // the store primitive itself failed
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedInput:
		return "MalformedInput"
	case AmbiguousOrUnsupportedShape:
		return "AmbiguousOrUnsupportedShape"
	case MissingCollection:
		return "MissingCollection"
	case MissingRequiredArgument:
		return "MissingRequiredArgument"
	case UnsupportedMethod:
		return "UnsupportedMethod"
	case StoreOperationFailed:
		return "StoreOperationFailed"
	default:
		return "Unknown"
	}
}

// maxInputEcho bounds how much of the request text an error carries.
const maxInputEcho = 200

// Error is the only error type the translation layer returns.
type Error struct {
	Kind   ErrorKind
	Detail string
	Input  string // bounded prefix of the offending text, when relevant
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" (input: %q)", e.Input)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) withInput(text string) *Error {
	e.Input = truncate(text, maxInputEcho)
	return e
}

func (e *Error) wrap(err error) *Error {
	e.Err = err
	return e
}

// storeError reports a failed primitive. The store's message is kept as is.
func storeError(op string, err error) *Error {
	return &Error{Kind: StoreOperationFailed, Detail: op, Err: err}
}

// KindOf returns the kind of a translation error, or KindUnknown.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// back off to a rune boundary
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
