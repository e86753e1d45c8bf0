package rs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestFromSliceUnboundedRequest(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := newRecorder[int]()
	FromSlice([]int{1, 2, 3}).Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]int{1, 2, 3}, r.Values())
	is.True(r.Completed())
	is.Nil(r.Err())
}

func TestFromSliceRequestSequencing(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := newRecorder[int]()
	FromSlice([]int{1, 2, 3, 4, 5}).Subscribe(r)
	sub := r.Subscription()

	sub.Request(2)
	is.Equal([]int{1, 2}, r.Values())
	is.False(r.Completed())

	sub.Request(1)
	is.Equal([]int{1, 2, 3}, r.Values())
	is.False(r.Completed())

	sub.Request(10)
	is.Equal([]int{1, 2, 3, 4, 5}, r.Values())
	is.True(r.Completed())
}

func TestFromSliceEmpty(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := newRecorder[int]()
	FromSlice([]int{}).Subscribe(r)

	is.Empty(r.Values())
	is.True(r.Completed())
	is.Equal(1, r.SubscribeCount())
}

func TestFromSliceNonPositiveRequestIsFatal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := newRecorder[int]()
	FromSlice([]int{1, 2, 3}).Subscribe(r)
	sub := r.Subscription()

	sub.Request(1)
	is.Equal([]int{1}, r.Values())

	sub.Request(0)
	is.ErrorIs(r.Err(), ErrInvalidRequest)
	is.False(r.Completed())

	sub.Request(1)
	is.Equal([]int{1}, r.Values(), "a subscription already terminated by an invalid request must not resume emitting")
}

func TestFromIterableErrorFromHasNext(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	it := &errorIterator{failAt: 0, err: boom}

	r := newRecorder[int]()
	FromIterable(func() (Iterator[int], error) { return it, nil }).Subscribe(r)

	is.Empty(r.Values())
	is.Equal(boom, r.Err())
	is.False(r.Completed())
}

func TestFromIterableErrorFromNext(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("boom")
	it := &errorIterator{failAt: 1, err: boom}

	r := newRecorder[int]()
	FromIterable(func() (Iterator[int], error) { return it, nil }).Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]int{0}, r.Values())
	is.Equal(boom, r.Err())
	is.False(r.Completed())
}

func TestFromIterableNewIteratorError(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	boom := errors.New("cannot build iterator")

	r := newRecorder[int]()
	FromIterable(func() (Iterator[int], error) { return nil, boom }).Subscribe(r)

	is.Equal(boom, r.Err())
}

func TestFromSliceNullValueIsFatal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	r := newRecorder[*int]()
	FromSlice([]*int{intPtr(1), nil, intPtr(3)}).Subscribe(r)
	r.Subscription().Request(Unbounded)

	is.Equal([]*int{intPtr(1)}, r.Values())
	is.ErrorIs(r.Err(), ErrNullValue)
	is.False(r.Completed())
}

func TestFromSliceEachSubscriberGetsItsOwnIterator(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	source := FromSlice([]int{1, 2})

	first := newRecorder[int]()
	source.Subscribe(first)
	first.Subscription().Request(1)

	second := newRecorder[int]()
	source.Subscribe(second)
	second.Subscription().Request(Unbounded)

	is.Equal([]int{1}, first.Values())
	is.Equal([]int{1, 2}, second.Values())
}

func TestFromSlicePanickingSubscriberIsToldOnError(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	panicker := &panicOnSecondValue{}
	FromSlice([]int{1, 2, 3}).Subscribe(panicker)

	is.NotPanics(func() {
		panicker.sub.Request(Unbounded)
	})

	is.Equal([]int{1}, panicker.values)
	is.ErrorContains(panicker.err, "exploded")
}

// panicOnSecondValue is a Subscriber whose OnNext panics the second time it
// is called, to exercise a drain loop's panic recovery.
type panicOnSecondValue struct {
	sub    Subscription
	values []int
	err    error
}

func (p *panicOnSecondValue) OnSubscribe(s Subscription) { p.sub = s }

func (p *panicOnSecondValue) OnNext(v int) {
	if len(p.values) == 1 {
		panic(errors.New("exploded"))
	}

	p.values = append(p.values, v)
}

func (p *panicOnSecondValue) OnError(err error) { p.err = err }
func (p *panicOnSecondValue) OnComplete()       {}

// errorIterator produces integers 0..failAt-1 successfully then fails either
// from HasNext (failAt == 0) or from Next (failAt > 0).
type errorIterator struct {
	n      int
	failAt int
	err    error
}

func (it *errorIterator) HasNext() (bool, error) {
	if it.failAt == 0 {
		return false, it.err
	}

	return true, nil
}

func (it *errorIterator) Next() (int, error) {
	if it.n == it.failAt {
		return 0, it.err
	}

	v := it.n
	it.n++

	return v, nil
}
