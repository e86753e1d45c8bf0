package rs

import (
	"fmt"

	"github.com/samber/lo"
)

// callbackPanicError wraps a value recovered from a panicking Subscriber
// callback, the same shape the root package's ObserverError gives a
// panicking Observer callback.
type callbackPanicError struct {
	cause error
}

func newCallbackPanicError(v any) error {
	if err, ok := v.(error); ok {
		return &callbackPanicError{cause: err}
	}

	return &callbackPanicError{cause: fmt.Errorf("%v", v)}
}

func (e *callbackPanicError) Error() string {
	return fmt.Sprintf("rs: subscriber callback panicked: %s", e.cause.Error())
}

func (e *callbackPanicError) Unwrap() error { return e.cause }

// safeOnNext delivers v to downstream.OnNext, recovering a panic the same
// way the root package's observerImpl.tryNext does (lo.TryCatchWithErrorValue)
// instead of letting it unwind through a drain loop and leave a wip counter
// or cursor stuck mid-pass. On panic it calls onPanic with the wrapped cause
// and returns false; callers use that to stop their pass and go terminal.
func safeOnNext[T any](downstream Subscriber[T], v T, onPanic func(err error)) bool {
	ok := true

	lo.TryCatchWithErrorValue(
		func() error {
			downstream.OnNext(v)
			return nil
		},
		func(e any) {
			ok = false
			onPanic(newCallbackPanicError(e))
		},
	)

	return ok
}
