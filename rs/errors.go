package rs

import "errors"

// Sentinel errors signalled through Subscriber.OnError by the operators in
// this package. They are never panicked: a violation of the protocol
// terminates the subscriber the way any other upstream error would.
var (
	// ErrInvalidRequest is delivered when a Subscriber calls Request with
	// n <= 0, per the protocol's rule that request is strictly positive.
	ErrInvalidRequest = errors.New("rs: request amount must be positive")

	// ErrNullValue is delivered when a null value (a nil pointer, interface,
	// slice, map, chan or func) is produced in place of a real element.
	ErrNullValue = errors.New("rs: onNext called with a null value")

	// ErrQueueFull is delivered when a producer offers to a bounded queue
	// that has no more room, which the Reactive Streams rules treat as a
	// fatal protocol violation rather than a backpressure signal.
	ErrQueueFull = errors.New("rs: queue is full")

	// ErrDoubleSubscription is delivered to a second Subscriber attempting
	// to subscribe to a Publisher that only supports one.
	ErrDoubleSubscription = errors.New("rs: only one subscriber is supported")

	// ErrInvalidWindowSize is delivered when Window is constructed with a
	// non-positive size or skip.
	ErrInvalidWindowSize = errors.New("rs: window size and skip must be positive")
)
