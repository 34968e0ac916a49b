package types

import (
	"fmt"

	"github.com/juju/errors"
)

var (
	_ error = &OpenError{}
	_ error = &RetrieveError{}
)

var (
	ErrEngineClosed = errors.New("render engine closed")
	ErrNotStarted   = errors.New("render worker not started")
)

func NewOpenError(stream StreamID, otherErr error) error {
	return &OpenError{baseError: newBaseErr(otherErr), Stream: stream}
}

func NewOpenErrorf(stream StreamID, format string, args ...interface{}) error {
	return NewOpenError(stream, errors.Errorf(format, args...))
}

func NewRetrieveError(stream StreamID, at Rational, otherErr error) error {
	return &RetrieveError{baseError: newBaseErr(otherErr), Stream: stream, Time: at}
}

func IsOpenError(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	if e.BaseErr == nil {
		return "<nil>"
	}
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

func (e *baseError) Unwrap() error {
	return e.BaseErr
}

// OpenError means a decoder could not be opened for a stream. The decoder
// is never cached, so a later evaluation retries.
type OpenError struct {
	*baseError
	Stream StreamID
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open stream %d: %s", e.Stream, e.baseError.Error())
}

type RetrieveError struct {
	*baseError
	Stream StreamID
	Time   Rational
}

func (e *RetrieveError) Error() string {
	return fmt.Sprintf("retrieve stream %d at %s: %s", e.Stream, e.Time, e.baseError.Error())
}
