package rs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// windowCollector subscribes to every inner Publisher[int] as soon as it
// arrives, so its window recorders accumulate content live, the same way a
// real downstream would.
type windowCollector struct {
	sub       Subscription
	windows   []*recorder[int]
	err       error
	completed bool
}

func (wc *windowCollector) OnSubscribe(s Subscription) { wc.sub = s }

func (wc *windowCollector) OnNext(w Publisher[int]) {
	r := newRecorder[int]()
	r.autoRequest = Unbounded
	w.Subscribe(r)
	wc.windows = append(wc.windows, r)
}

func (wc *windowCollector) OnError(err error) { wc.err = err }
func (wc *windowCollector) OnComplete()       { wc.completed = true }

func (wc *windowCollector) values() [][]int {
	out := make([][]int, len(wc.windows))
	for i, w := range wc.windows {
		out[i] = w.Values()
	}

	return out
}

func TestWindowExactNonOverlapping(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](3, 3)(src).Subscribe(wc)
	wc.sub.Request(Unbounded)

	for v := 1; v <= 6; v++ {
		src.sub.OnNext(v)
	}
	src.sub.OnComplete()

	is.Equal([][]int{{1, 2, 3}, {4, 5, 6}}, wc.values())
	is.True(wc.completed)

	for _, w := range wc.windows {
		is.True(w.Completed())
	}
}

func TestWindowSkipDropsBetweenWindows(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](2, 3)(src).Subscribe(wc)
	wc.sub.Request(Unbounded)

	for v := 1; v <= 6; v++ {
		src.sub.OnNext(v)
	}
	src.sub.OnComplete()

	is.Equal([][]int{{1, 2}, {4, 5}}, wc.values())
}

func TestWindowOverlapSlidesAndForceClosesOnComplete(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](3, 1)(src).Subscribe(wc)
	wc.sub.Request(Unbounded)

	for v := 1; v <= 5; v++ {
		src.sub.OnNext(v)
	}
	src.sub.OnComplete()

	is.Equal([][]int{
		{1, 2, 3},
		{2, 3, 4},
		{3, 4, 5},
		{4, 5},
		{5},
	}, wc.values())
	is.True(wc.completed)

	for _, w := range wc.windows {
		is.True(w.Completed())
	}
}

func TestWindowCreditExact(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](3, 3)(src).Subscribe(wc)

	wc.sub.Request(2)

	is.Equal([]int64{6}, src.requests)
}

func TestWindowCreditSkip(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](2, 3)(src).Subscribe(wc)

	wc.sub.Request(2) // first request: size + (skip-size)*(n-1) == 2 + 1*1 == 3
	wc.sub.Request(2) // subsequent: skip*n == 3*2 == 6

	is.Equal([]int64{3, 6}, src.requests)
}

func TestWindowCreditOverlap(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](3, 1)(src).Subscribe(wc)

	wc.sub.Request(2) // first request: size + skip*(n-1) == 3 + 1*1 == 4
	wc.sub.Request(3) // subsequent: skip*n == 1*3 == 3

	is.Equal([]int64{4, 3}, src.requests)
}

func TestWindowInvalidSizeIsRejected(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](0, 3)(src).Subscribe(wc)

	is.ErrorIs(wc.err, ErrInvalidWindowSize)
}

func TestWindowNonPositiveRequestIsFatal(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](2, 2)(src).Subscribe(wc)

	wc.sub.Request(0)

	is.ErrorIs(wc.err, ErrInvalidRequest)
	is.True(src.canceled)
}

func TestWindowCancelReleasesUpstreamOnceLastWindowGone(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	src := &controlledSource[int]{}
	wc := &windowCollector{}
	Window[int](2, 2)(src).Subscribe(wc)
	wc.sub.Request(Unbounded)

	src.sub.OnNext(1)
	src.sub.OnNext(2) // closes the only open window

	is.False(src.canceled)

	wc.sub.Cancel()
	is.True(src.canceled)
}
