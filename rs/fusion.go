package rs

import "errors"

// FusionMode describes the negotiated relationship between a Subscription
// that also implements QueueSubscription and the Subscriber requesting
// fusion from it. Fusion lets two adjacent operators bypass the
// OnNext/Request dance and exchange elements directly through a shared
// queue, which matters for hot loops like ObserveOn and Window's inner
// processors.
type FusionMode int

const (
	// FusionNone means no fusion was negotiated; the regular OnNext/Request
	// protocol applies.
	FusionNone FusionMode = iota
	// FusionSync means Poll never blocks and the queue is drained
	// synchronously on the subscriber's own thread, skipping a Request
	// round-trip entirely (used by the iterable source, whose Poll pulls
	// straight from its iterator).
	FusionSync
	// FusionAsync means Poll may return (nil, false) while the queue is
	// merely empty rather than exhausted; the producer will call OnNext (or
	// signal availability some other way) once more data exists.
	FusionAsync
	// FusionAny is sent by a Subscriber in RequestFusion to mean "either
	// mode is acceptable"; a QueueSubscription answers with the mode it
	// actually supports, never with FusionAny itself.
	FusionAny
)

// ErrQueuePollAfterTerminal names a Poll made after the queue's producer has
// terminated and the queue has been drained. Poll has no error result, and
// no implementation in this package returns or delivers this error; such a
// Poll simply reports ok=false.
var ErrQueuePollAfterTerminal = errors.New("rs: poll called on a queue past its terminal state")

// QueueSubscription is a Subscription that can also be drained directly as
// a queue. Operators negotiate fusion by type-asserting the upstream
// Subscription to this interface inside OnSubscribe.
type QueueSubscription[T any] interface {
	Subscription

	// RequestFusion asks to establish fusion in the given mode (FusionSync,
	// FusionAsync, or FusionAny to accept either) and returns the mode that
	// was actually granted, or FusionNone if the implementation declines.
	RequestFusion(mode FusionMode) FusionMode

	// Poll removes and returns the next queued element. ok is false when
	// the queue is empty; callers in async fusion mode must not treat that
	// as exhaustion by itself; they must additionally check IsEmpty/OnNext
	// signaling to learn whether more elements are still coming.
	Poll() (value T, ok bool)

	// IsEmpty reports whether the queue currently holds no elements.
	IsEmpty() bool

	// Clear discards any queued elements, used during cancellation.
	Clear()

	// Size reports how many elements are queued, as far as the
	// implementation tracks it: the iterable source reports 1 while an
	// element is available and 0 otherwise, and a replay subscription always
	// reports 0. No operator in this package calls it.
	Size() int
}

// NegotiateFusion attempts to establish fusion of the requested mode
// between subscription and its downstream. It returns the granted mode,
// which is FusionNone if subscription does not support QueueSubscription or
// declines the requested mode.
func NegotiateFusion[T any](subscription Subscription, requested FusionMode) FusionMode {
	qs, ok := subscription.(QueueSubscription[T])
	if !ok {
		return FusionNone
	}

	return qs.RequestFusion(requested)
}
