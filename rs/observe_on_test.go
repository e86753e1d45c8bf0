package rs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// syncScheduler runs every scheduled task inline, on the calling goroutine.
// It keeps these tests deterministic: the drain loop's own wip counter is
// exercised exactly the same way it would be on a real goroutine, just
// without the nondeterministic interleaving.
type syncScheduler struct{}

func (syncScheduler) Schedule(task func()) { task() }

// controlledSource is a Publisher whose Subscription is a plain Subscription
// (never a QueueSubscription), so operators under test always take the
// regular allocated-queue path instead of negotiating fusion. The test holds
// onto the Subscriber handed back so it can push signals by hand.
type controlledSource[T any] struct {
	sub      Subscriber[T]
	requests []int64
	canceled bool
}

func (c *controlledSource[T]) Subscribe(subscriber Subscriber[T]) {
	c.sub = subscriber
	subscriber.OnSubscribe(&controlledSubscription[T]{src: c})
}

type controlledSubscription[T any] struct {
	src *controlledSource[T]
}

func (s *controlledSubscription[T]) Request(n int64) { s.src.requests = append(s.src.requests, n) }
func (s *controlledSubscription[T]) Cancel()         { s.src.canceled = true }

func TestObserveOnBasicFusedPassthrough(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := newRecorder[int]()
	r.autoRequest = Unbounded

	ObserveOn[int](syncScheduler{})(FromSlice([]int{1, 2, 3})).Subscribe(r)

	is.Equal([]int{1, 2, 3}, r.Values())
	is.True(r.Completed())
}

func TestObserveOnPrefetchReplenishment(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	r := newRecorder[int]()
	r.autoRequest = Unbounded

	ObserveOn[int](syncScheduler{}, WithPrefetch[int](4))(src).Subscribe(r)

	is.Equal([]int64{4}, src.requests)

	src.sub.OnNext(1)
	src.sub.OnNext(2)
	src.sub.OnNext(3) // crosses limit (4 - 4/4 == 3): triggers replenishment
	src.sub.OnNext(4)
	src.sub.OnComplete()

	is.Equal([]int{1, 2, 3, 4}, r.Values())
	is.True(r.Completed())
	is.Equal([]int64{4, 3}, src.requests)
}

func TestObserveOnEagerErrorByDefault(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	src := &controlledSource[int]{}
	r := newRecorder[int]() // autoRequest left at zero: nothing consumed yet

	ObserveOn[int](syncScheduler{}, WithPrefetch[int](10))(src).Subscribe(r)

	src.sub.OnNext(1)
	src.sub.OnNext(2)
	src.sub.OnNext(3)
	src.sub.OnError(boom)

	is.Empty(r.Values())
	is.Equal(boom, r.Err())
	is.False(r.Completed())
}

func TestObserveOnDelayErrorDrainsQueueFirst(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	src := &controlledSource[int]{}
	r := newRecorder[int]()

	ObserveOn[int](syncScheduler{}, WithPrefetch[int](10), WithDelayError[int](true))(src).Subscribe(r)

	src.sub.OnNext(1)
	src.sub.OnNext(2)
	src.sub.OnNext(3)
	src.sub.OnError(boom)

	is.Empty(r.Values())
	is.Nil(r.Err())

	r.Subscription().Request(10)

	is.Equal([]int{1, 2, 3}, r.Values())
	is.Equal(boom, r.Err())
	is.False(r.Completed())
}

func TestObserveOnQueueFullIsFatal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	r := newRecorder[int]() // never requests, so nothing ever drains the queue

	ObserveOn[int](syncScheduler{}, WithPrefetch[int](2))(src).Subscribe(r)

	src.sub.OnNext(1)
	src.sub.OnNext(2)
	src.sub.OnNext(3) // queue capacity is 2: this overflows it

	is.ErrorIs(r.Err(), ErrQueueFull)
	is.True(src.canceled)
}

func TestObserveOnNonPositiveRequestIsFatal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	r := newRecorder[int]()

	ObserveOn[int](syncScheduler{}, WithPrefetch[int](10))(src).Subscribe(r)

	r.Subscription().Request(0)

	is.ErrorIs(r.Err(), ErrInvalidRequest)
	is.True(src.canceled)
	is.False(r.Completed())
}

func TestObserveOnCancelStopsUpstream(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	r := newRecorder[int]()
	r.autoRequest = Unbounded

	ObserveOn[int](syncScheduler{}, WithPrefetch[int](10))(src).Subscribe(r)

	r.Subscription().Cancel()
	src.sub.OnNext(1)

	is.True(src.canceled)
	is.Empty(r.Values())
}
