package rs

import (
	"context"
	"sync/atomic"
)

// windowInner is one sub-sequence emitted by Window: a unicast, single-
// subscriber hot processor. It reuses replayBuffer/replaySubscription from
// replay.go wholesale (an unbounded buffer plus the one cursor its single
// subscriber gets), rather than a bespoke per-window queue.
type windowInner[T any] struct {
	buf   replayBuffer[T]
	hooks Hooks

	subscribedOnce atomic.Bool
	sub            *replaySubscription[T]

	// count is the number of items delivered into this window so far. It is
	// only ever touched from inside the outer windowSubscriber's OnNext,
	// which the Reactive Streams protocol already serializes, so it needs
	// no synchronization of its own.
	count int64

	terminated atomic.Bool
	released   atomic.Bool
	releaseFn  func()
}

func newWindowInner[T any](release func()) *windowInner[T] {
	return &windowInner[T]{buf: newUnboundedReplayBuffer[T](), hooks: DefaultHooks(), releaseFn: release}
}

var _ Publisher[int] = (*windowInner[int])(nil)

func (w *windowInner[T]) buffer() replayBuffer[T] { return w.buf }

// remove is called by a replaySubscription on Cancel; a cancelled window
// releases its hold on the shared upstream the same as a naturally
// terminated one.
func (w *windowInner[T]) remove(*replaySubscription[T]) {
	w.releaseOnce()
}

func (w *windowInner[T]) releaseOnce() {
	if w.released.CompareAndSwap(false, true) {
		w.releaseFn()
	}
}

func (w *windowInner[T]) next(v T) {
	if w.terminated.Load() {
		var ctx context.Context = context.Background()
		if w.sub != nil {
			ctx = ContextOf(w.sub.downstream)
		}

		w.hooks.OnDroppedNotification(ctx, v)

		return
	}

	w.count++
	w.buf.push(v)

	if w.sub != nil {
		w.sub.drain()
	}
}

func (w *windowInner[T]) complete()       { w.terminate(nil) }
func (w *windowInner[T]) fail(err error) { w.terminate(err) }

func (w *windowInner[T]) terminate(err error) {
	if !w.terminated.CompareAndSwap(false, true) {
		return
	}

	w.buf.terminate(err)

	if w.sub != nil {
		w.sub.drain()
	}

	w.releaseOnce()
}

// Subscribe implements Publisher. A windowInner is unicast: a second
// subscriber is rejected outright rather than sharing the first one's
// cursor.
func (w *windowInner[T]) Subscribe(subscriber Subscriber[T]) {
	if !w.subscribedOnce.CompareAndSwap(false, true) {
		Error[T](subscriber, ErrDoubleSubscription)
		return
	}

	sub := &replaySubscription[T]{processor: w, downstream: subscriber, cursor: w.buf.newCursor()}
	w.sub = sub
	subscriber.OnSubscribe(sub)
}

// Window splits upstream into a sequence of Publisher[T] sub-sequences of
// size elements each, starting a new one every skip elements. skip == size
// gives non-overlapping windows; skip > size drops elements between
// windows; skip < size makes windows overlap.
func Window[T any](size, skip int) func(Publisher[T]) Publisher[Publisher[T]] {
	return func(upstream Publisher[T]) Publisher[Publisher[T]] {
		return &windowOperator[T]{upstream: upstream, size: int64(size), skip: int64(skip)}
	}
}

type windowOperator[T any] struct {
	upstream   Publisher[T]
	size, skip int64
}

func (op *windowOperator[T]) Subscribe(subscriber Subscriber[Publisher[T]]) {
	if op.size <= 0 || op.skip <= 0 {
		Error[Publisher[T]](subscriber, ErrInvalidWindowSize)
		return
	}

	s := &windowSubscriber[T]{downstream: subscriber, size: op.size, skip: op.skip, pending: NewChannelQueue[Publisher[T]](defaultQueueCapacity)}
	s.workCount.Store(1)
	op.upstream.Subscribe(s)
}

var (
	_ Subscriber[int] = (*windowSubscriber[int])(nil)
	_ Subscription    = (*windowSubscriber[int])(nil)
)

// windowSubscriber is both the Subscriber that consumes upstream's elements
// and the Subscription exposed to whoever subscribes to the outer
// Publisher[Publisher[T]]; newly created windows flow through pending, the
// single queue that governs how many outer windows have been emitted
// against how many were requested.
type windowSubscriber[T any] struct {
	downstream Subscriber[Publisher[T]]
	size, skip int64

	upstreamSub Subscription
	index       int64

	firstRequest atomic.Bool
	requested    demand
	wip          wip
	produced     int64

	pending Queue[Publisher[T]]

	// current is the single active window in the exact/skip regimes (nil
	// between the end of one window and the start of the next, in the skip
	// regime's drop interval). overlapWindows holds every currently open
	// window in the overlap regime, oldest first.
	current        *windowInner[T]
	overlapWindows []*windowInner[T]

	workCount atomic.Int32

	done       atomic.Bool
	cancelled  atomic.Bool
	terminated atomic.Bool
	err        error
}

func (s *windowSubscriber[T]) OnSubscribe(subscription Subscription) {
	if !ValidateSubscription(s.upstreamSub, subscription) {
		return
	}

	s.upstreamSub = subscription
	s.downstream.OnSubscribe(s)
}

func (s *windowSubscriber[T]) OnNext(v T) {
	switch {
	case s.skip == s.size:
		s.onNextExact(v)
	case s.skip > s.size:
		s.onNextSkip(v)
	default:
		s.onNextOverlap(v)
	}

	s.drain()
}

func (s *windowSubscriber[T]) onNextExact(v T) {
	if s.index == 0 {
		s.openWindow(&s.current)
	}

	s.current.next(v)
	s.index++

	if s.index == s.size {
		s.current.complete()
		s.current = nil
		s.index = 0
	}
}

func (s *windowSubscriber[T]) onNextSkip(v T) {
	if s.index == 0 {
		s.openWindow(&s.current)
	}

	if s.current != nil {
		s.current.next(v)
	}

	s.index++

	if s.index == s.size && s.current != nil {
		s.current.complete()
		s.current = nil
	}

	if s.index == s.skip {
		s.index = 0
	}
}

func (s *windowSubscriber[T]) onNextOverlap(v T) {
	if s.index%s.skip == 0 {
		inner := newWindowInner(s.releaseWork)
		s.workCount.Add(1)
		s.overlapWindows = append(s.overlapWindows, inner)
		s.pending.Offer(inner)
	}

	for _, inner := range s.overlapWindows {
		inner.next(v)
	}

	if len(s.overlapWindows) > 0 && s.overlapWindows[0].count == s.size {
		s.overlapWindows[0].complete()
		s.overlapWindows = s.overlapWindows[1:]
	}

	s.index++
}

// openWindow allocates a fresh window into *slot, holds a work-count
// reference for it, and enqueues it as the next outer emission.
func (s *windowSubscriber[T]) openWindow(slot **windowInner[T]) {
	inner := newWindowInner(s.releaseWork)
	s.workCount.Add(1)
	*slot = inner
	s.pending.Offer(inner)
}

func (s *windowSubscriber[T]) OnError(err error) {
	if !s.done.CompareAndSwap(false, true) {
		return
	}

	s.err = err
	s.terminateActiveWindows(err)
	s.drain()
}

func (s *windowSubscriber[T]) OnComplete() {
	if !s.done.CompareAndSwap(false, true) {
		return
	}

	s.terminateActiveWindows(nil)
	s.drain()
}

func (s *windowSubscriber[T]) terminateActiveWindows(err error) {
	if s.current != nil {
		s.terminateWindow(s.current, err)
		s.current = nil
	}

	for _, inner := range s.overlapWindows {
		s.terminateWindow(inner, err)
	}

	s.overlapWindows = nil
}

func (s *windowSubscriber[T]) terminateWindow(inner *windowInner[T], err error) {
	if err != nil {
		inner.fail(err)
	} else {
		inner.complete()
	}
}

// Request implements Subscription, translating a request for n outer
// windows into upstream demand via the credit formulas of the regime.
func (s *windowSubscriber[T]) Request(n int64) {
	if !ValidateRequest(n) {
		if s.upstreamSub != nil {
			s.upstreamSub.Cancel()
		}
		s.OnError(ErrInvalidRequest)
		return
	}

	s.requested.add(n)

	if credit := s.credit(n); credit > 0 && s.upstreamSub != nil {
		s.upstreamSub.Request(credit)
	}

	s.drain()
}

func (s *windowSubscriber[T]) credit(n int64) int64 {
	switch {
	case s.skip == s.size:
		return MultiplyCap(s.size, n)
	case s.skip > s.size:
		if s.firstRequest.CompareAndSwap(false, true) {
			return AddCap(s.size, MultiplyCap(s.skip-s.size, n-1))
		}

		return MultiplyCap(s.skip, n)
	default:
		if s.firstRequest.CompareAndSwap(false, true) {
			return AddCap(s.size, MultiplyCap(s.skip, n-1))
		}

		return MultiplyCap(s.skip, n)
	}
}

func (s *windowSubscriber[T]) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}

	s.releaseWork()
	s.drain()
}

// releaseWork drops one reference from the shared work counter (initialised
// to 1 for the outer subscription itself, plus one per live window); when
// it reaches zero, nothing downstream still cares about upstream's output
// and it is cancelled.
func (s *windowSubscriber[T]) releaseWork() {
	if s.workCount.Add(-1) == 0 && s.upstreamSub != nil {
		s.upstreamSub.Cancel()
	}
}

func (s *windowSubscriber[T]) drain() {
	if !s.wip.enter() {
		return
	}

	missed := int32(1)
	for {
		s.drainOnce()

		missed = s.wip.leave(missed)
		if missed == 0 {
			return
		}
	}
}

func (s *windowSubscriber[T]) drainOnce() {
	e := s.produced
	r := s.requested.get()

	for e != r {
		if s.checkTerminated() {
			return
		}

		w, ok := s.pending.Poll()
		if !ok {
			break
		}

		if !safeOnNext(s.downstream, w, func(err error) {
			s.cancelled.Store(true)
			s.releaseWork()
			s.downstream.OnError(err)
		}) {
			return
		}

		e++
	}

	if e == r {
		s.checkTerminated()
	}

	s.produced = e
}

func (s *windowSubscriber[T]) checkTerminated() bool {
	if s.cancelled.Load() {
		if s.upstreamSub != nil {
			s.upstreamSub.Cancel()
		}

		s.pending.Clear()

		return true
	}

	if !s.done.Load() {
		return false
	}

	if s.pending.IsEmpty() {
		if s.terminated.CompareAndSwap(false, true) {
			if s.err != nil {
				s.downstream.OnError(s.err)
			} else {
				s.downstream.OnComplete()
			}
		}

		return true
	}

	return false
}
