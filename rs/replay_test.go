package rs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayUnboundedLateSubscriberGetsHistory(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)
	p.OnNext(1)
	p.OnNext(2)
	p.OnNext(3)

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]int{1, 2, 3}, r.Values())

	p.OnNext(4)
	is.Equal([]int{1, 2, 3, 4}, r.Values())
}

func TestReplayUnboundedEarlySubscriberSeesLiveValuesAndComplete(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(Unbounded)

	p.OnNext(1)
	p.OnNext(2)
	p.OnComplete()

	is.Equal([]int{1, 2}, r.Values())
	is.True(r.Completed())
}

func TestReplayMulticastFansOutToEverySubscriber(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)
	p.OnNext(1)

	a := newRecorder[int]()
	b := newRecorder[int]()
	p.Subscribe(a)
	p.Subscribe(b)
	a.Subscription().Request(Unbounded)
	b.Subscription().Request(Unbounded)

	p.OnNext(2)
	p.OnComplete()

	is.Equal([]int{1, 2}, a.Values())
	is.Equal([]int{1, 2}, b.Values())
	is.True(a.Completed())
	is.True(b.Completed())
}

func TestReplayErrorIsTerminalAndReplayedToLateSubscribers(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	p := NewReplayProcessor[int](0)
	p.OnNext(1)
	p.OnError(boom)

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]int{1}, r.Values())
	is.Equal(boom, r.Err())
}

func TestReplayDropsSignalsAfterTerminal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)
	p.OnNext(1)
	p.OnComplete()
	p.OnNext(2) // dropped: buffer is already terminated

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]int{1}, r.Values())
	is.True(r.Completed())
}

func TestReplayBoundedLateSubscriberOnlySeesRetainedWindow(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](2)
	p.OnNext(1)
	p.OnNext(2)
	p.OnNext(3)
	p.OnNext(4)

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]int{3, 4}, r.Values())
}

func TestReplayBoundedStaleCursorFollowsEvictedChain(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](2)

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(1)

	p.OnNext(1) // consumed immediately: cursor now parked on the node holding 1
	is.Equal([]int{1}, r.Values())

	p.OnNext(2) // buffer: [1 -> 2], not yet evicted (count == limit == 2)
	p.OnNext(3) // buffer evicts 1 from head; node holding 1 still points at 2

	r.Subscription().Request(10)

	is.Equal([]int{1, 2, 3}, r.Values())
}

func TestReplayBoundedPropagatesCompleteOnceDrained(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](2)
	p.OnNext(1)
	p.OnNext(2)
	p.OnComplete()

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]int{1, 2}, r.Values())
	is.True(r.Completed())
}

func TestReplayUnboundedCrossesBatchBoundary(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)
	for i := 0; i < replayBatchSize+2; i++ {
		p.OnNext(i)
	}
	p.OnComplete()

	r := newRecorder[int]()
	p.Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Len(r.Values(), replayBatchSize+2)
	is.Equal(0, r.Values()[0])
	is.Equal(replayBatchSize+1, r.Values()[len(r.Values())-1])
	is.True(r.Completed())
}

func TestReplayCancelStopsFurtherDelivery(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)
	p.OnNext(1)

	r := newRecorder[int]()
	p.Subscribe(r)
	sub := r.Subscription()
	sub.Request(1)
	is.Equal([]int{1}, r.Values())

	sub.Cancel()
	p.OnNext(2)
	p.OnComplete()

	is.Equal([]int{1}, r.Values())
	is.False(r.Completed())
}

func TestReplayNonPositiveRequestIsFatal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)
	p.OnNext(1)

	r := newRecorder[int]()
	p.Subscribe(r)

	r.Subscription().Request(0)

	is.ErrorIs(r.Err(), ErrInvalidRequest)
	is.Empty(r.Values())

	p.OnNext(2)
	is.Empty(r.Values(), "a subscription removed after an invalid request must not receive further values")
}

func TestReplayFusedAsyncConsumer(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	p := NewReplayProcessor[int](0)
	p.OnNext(1)
	p.OnNext(2)
	p.OnComplete()

	var polled []int
	fr := &fusedRecorder[int]{onNext: func(zero int) {
		qs := fr.qs
		for {
			v, ok := qs.Poll()
			if !ok {
				break
			}
			polled = append(polled, v)
		}
	}}
	p.Subscribe(fr)
	fr.qs.RequestFusion(FusionAsync)
	fr.qs.Request(Unbounded)

	is.Equal([]int{1, 2}, polled)
	is.True(fr.completed)
}

// fusedRecorder is a Subscriber that negotiates async fusion and pulls real
// values through Poll instead of OnNext, per the fused wakeup convention.
type fusedRecorder[T any] struct {
	qs        QueueSubscription[T]
	onNext    func(zero T)
	completed bool
	err       error
}

func (f *fusedRecorder[T]) OnSubscribe(s Subscription) { f.qs = s.(QueueSubscription[T]) }
func (f *fusedRecorder[T]) OnNext(zero T)              { f.onNext(zero) }
func (f *fusedRecorder[T]) OnError(err error)          { f.err = err }
func (f *fusedRecorder[T]) OnComplete()                { f.completed = true }
