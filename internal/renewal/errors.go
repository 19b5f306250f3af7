package renewal

import (
	"errors"
	"fmt"
)

var (
	ErrUsage          = errors.New("usage")
	ErrInputNotFound  = errors.New("input not found")
	ErrKeyResolution  = errors.New("unknown metric")
	ErrMalformedField = errors.New("malformed field")
	ErrSerialization  = errors.New("serialization failed")
)

// Error carries one of the Err* kinds plus the underlying cause. errors.Is
// matches both the kind and anything wrapped in Err.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}
