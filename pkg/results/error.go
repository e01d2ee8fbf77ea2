package results

import (
	"errors"
	"fmt"
	"strings"
)

// Error carries a Reason next to the message and the wrapped cause, so
// callers can tell a broken manifest from an unreachable one:
//
//	if err := json.Unmarshal(data, &report); err != nil {
//	    return results.ForReason(results.ReasonDecode).WithError(err).Errorf("could not decode manifest for %s", experiment)
//	}
type Error struct {
	reason  Reason
	message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped == nil || e.message == e.wrapped.Error() {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.wrapped)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is matches any *Error, independent of its reason.
func (e *Error) Is(target error) bool {
	_, is := target.(*Error)
	return is
}

// Reason is the outermost reason of the error.
func (e *Error) Reason() Reason {
	return e.reason
}

// Reasons provides the chains of error reasons.
// Each item in the return value is a single chain divided by colons. Aggregate
// errors, those whose type provides an `Errors` method returning a list of
// errors, are recursively expanded into a separate chain for each child.
func Reasons(errs ...error) (ret []string) {
	for _, err := range errs {
		switch err := err.(type) {
		case *Error:
			children := Reasons(err.Unwrap())
			if len(children) == 0 {
				ret = append(ret, string(err.reason))
				break
			}
			for _, r := range children {
				ret = append(ret, fmt.Sprintf("%s:%s", err.reason, r))
			}
		case interface{ Errors() []error }:
			ret = append(ret, Reasons(err.Errors()...)...)
		case interface{ Unwrap() error }:
			ret = append(ret, Reasons(err.Unwrap())...)
		}
	}
	return
}

// FullReason joins all reason chains of the error. Errors without any
// reason report ReasonUnknown.
func FullReason(err error) string {
	reasons := Reasons(DefaultReason(err))
	if len(reasons) == 0 {
		return string(ReasonUnknown)
	}
	return strings.Join(reasons, ",")
}

// HasReason reports whether any *Error in the chain carries the reason.
func HasReason(err error, reason Reason) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.reason == reason {
			return true
		}
		err = e.wrapped
	}
	return false
}

// BuilderWithReason starts the builder chain
type BuilderWithReason struct {
	Error
}

// ForReason is a constructor for an Error from a Reason. We expect
// users to then add a child and a error message to this Error.
func ForReason(reason Reason) *BuilderWithReason {
	if reason == "" {
		reason = ReasonUnknown
	}
	return &BuilderWithReason{
		Error: Error{
			reason: reason,
		},
	}
}

// BuilderWithReasonAndError adds a child error to the builder
type BuilderWithReasonAndError struct {
	Error
}

// WithError is a builder that adds a child to the Error. We
// expect users to continue to build the Error by adding a message.
func (e *BuilderWithReason) WithError(err error) *BuilderWithReasonAndError {
	b := &BuilderWithReasonAndError{
		Error: e.Error,
	}
	b.wrapped = err
	return b
}

// Errorf is the final producer in a chain: it returns an error, not an Error.
func (e *BuilderWithReasonAndError) Errorf(format string, args ...interface{}) error {
	e.message = fmt.Sprintf(format, args...)
	return &e.Error
}

// Errorf builds an Error without a wrapped cause.
func (e *BuilderWithReason) Errorf(format string, args ...interface{}) error {
	e.message = fmt.Sprintf(format, args...)
	return &e.Error
}

// ForError is a constructor for when a caller does not want to add
// a message but only tag an error coming from elsewhere:
//
//	err := results.ForReason(results.ReasonTransport).ForError(transport.Get(ctx, location))
func (e *BuilderWithReason) ForError(err error) error {
	if err == nil {
		return nil
	}
	e.wrapped = err
	e.message = err.Error()
	return &e.Error
}

// DefaultReason adds ReasonUnknown when the error does not carry a reason yet.
func DefaultReason(err error) error {
	if err == nil || errors.Is(err, &Error{}) {
		return err
	}

	return ForReason(ReasonUnknown).ForError(err)
}
